package auth

import (
	"context"
	"errors"
	"time"

	"git.carhub.se/carhub/carhub/src/db"
	"git.carhub.se/carhub/carhub/src/models"
	"git.carhub.se/carhub/carhub/src/oops"
	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps sessions in the sessions table.
type PostgresStore struct {
	conn   db.ConnOrTx
	maxAge time.Duration
}

var _ SessionStore = &PostgresStore{}

func NewPostgresStore(conn db.ConnOrTx, maxAge time.Duration) *PostgresStore {
	return &PostgresStore{
		conn:   conn,
		maxAge: maxAge,
	}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var sess models.Session
	var username *string
	var isAdmin bool
	err := row.Scan(&sess.ID, &username, &isAdmin, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if username != nil {
		sess.User = &models.SessionUser{
			Username: *username,
			IsAdmin:  isAdmin,
		}
	}
	return &sess, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Session, error) {
	sess, err := scanSession(s.conn.QueryRow(ctx,
		`
		---- Get session
		SELECT id, username, is_admin, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
		`,
		id, time.Now(),
	))
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, oops.New(err, "failed to get session")
	}
	return sess, err
}

func (s *PostgresStore) Create(ctx context.Context) (*models.Session, error) {
	session := models.Session{
		ID:        makeSessionId(),
		ExpiresAt: time.Now().Add(s.maxAge),
	}

	_, err := s.conn.Exec(ctx,
		`
		---- Create session
		INSERT INTO sessions (id, username, is_admin, expires_at)
		VALUES ($1, NULL, FALSE, $2)
		`,
		session.ID, session.ExpiresAt,
	)
	if err != nil {
		return nil, oops.New(err, "failed to persist session")
	}

	return &session, nil
}

// A single UPDATE is atomic per row, so concurrent logins on the same session
// cannot interleave.
func (s *PostgresStore) SetUser(ctx context.Context, id string, user *models.SessionUser) (*models.Session, error) {
	var username *string
	isAdmin := false
	if user != nil {
		username = &user.Username
		isAdmin = user.IsAdmin
	}

	now := time.Now()
	sess, err := scanSession(s.conn.QueryRow(ctx,
		`
		---- Set session user
		UPDATE sessions
		SET username = $2, is_admin = $3, expires_at = $4
		WHERE id = $1 AND expires_at > $5
		RETURNING id, username, is_admin, expires_at
		`,
		id, username, isAdmin, now.Add(s.maxAge), now,
	))
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, oops.New(err, "failed to set session user")
	}
	return sess, err
}

func (s *PostgresStore) Touch(ctx context.Context, id string) (*models.Session, error) {
	now := time.Now()
	sess, err := scanSession(s.conn.QueryRow(ctx,
		`
		---- Touch session
		UPDATE sessions
		SET expires_at = $2
		WHERE id = $1 AND expires_at > $3
		RETURNING id, username, is_admin, expires_at
		`,
		id, now.Add(s.maxAge), now,
	))
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, oops.New(err, "failed to touch session")
	}
	return sess, err
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.conn.Exec(ctx, "---- Delete session\nDELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return oops.New(err, "failed to delete session")
	}

	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.conn.Exec(ctx, "---- Delete expired sessions\nDELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}

	return tag.RowsAffected(), nil
}

// Counts live sessions, split by whether a user is attached.
func (s *PostgresStore) Count(ctx context.Context) (anonymous int64, authenticated int64, err error) {
	err = s.conn.QueryRow(ctx,
		`
		---- Count sessions
		SELECT
			COUNT(*) FILTER (WHERE username IS NULL),
			COUNT(*) FILTER (WHERE username IS NOT NULL)
		FROM sessions
		WHERE expires_at > $1
		`,
		time.Now(),
	).Scan(&anonymous, &authenticated)
	if err != nil {
		return 0, 0, oops.New(err, "failed to count sessions")
	}
	return anonymous, authenticated, nil
}
