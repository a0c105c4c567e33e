package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"git.carhub.se/carhub/carhub/src/jobs"
	"git.carhub.se/carhub/carhub/src/models"
)

const SessionCookieName = "carhub.sid"

// SessionStore is the durable mapping from session id to session record.
// Implementations must make SetUser and Touch atomic per id.
type SessionStore interface {
	// Returns ErrNoSession if the session is missing or expired.
	Get(ctx context.Context, id string) (*models.Session, error)
	// Creates an anonymous session expiring one max age from now.
	Create(ctx context.Context) (*models.Session, error)
	// Sets the session's user and pushes its expiry out by one max age.
	SetUser(ctx context.Context, id string, user *models.SessionUser) (*models.Session, error)
	// Pushes the session's expiry out by one max age.
	Touch(ctx context.Context, id string) (*models.Session, error)
	// Deletes a session by id. If no session with that id exists, no
	// error is returned.
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

var ErrNoSession = errors.New("no session found")

// A failure of the backing storage. Logged, never shown to users; the request
// carries on as anonymous.
type SessionStoreError struct {
	Op  string
	Err error
}

func (e *SessionStoreError) Error() string {
	return fmt.Sprintf("session store %s failed: %v", e.Op, e.Err)
}

func (e *SessionStoreError) Unwrap() error {
	return e.Err
}

// Normalizes anything a store returns into either nil, ErrNoSession, or a
// *SessionStoreError.
func storeError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNoSession) {
		return err
	}
	var storeErr *SessionStoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &SessionStoreError{Op: op, Err: err}
}

func makeSessionId() string {
	idBytes := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, idBytes)
	if err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(idBytes)
}

type CookieSettings struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

func (s CookieSettings) sign(id string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Returns "<id>.<signature>".
func (s CookieSettings) SignSessionId(id string) string {
	return id + "." + s.sign(id)
}

// Returns the session id from a signed cookie value, or false if the value is
// malformed or the signature does not match.
func (s CookieSettings) VerifySessionId(value string) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", false
	}

	id, sig := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(id))) {
		return "", false
	}
	return id, true
}

func (s CookieSettings) NewSessionCookie(session *models.Session) *http.Cookie {
	return &http.Cookie{
		Name:  SessionCookieName,
		Value: s.SignSessionId(session.ID),
		Path:  "/",

		MaxAge:  int(s.MaxAge / time.Second),
		Expires: time.Now().Add(s.MaxAge),

		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s CookieSettings) DeleteSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Sweeps expired sessions every interval. Each sweep gives up after timeout.
func PeriodicallyDeleteExpiredSessions(store SessionStore, interval, timeout time.Duration) *jobs.Job {
	return jobs.Periodic("delete expired sessions", interval, func(job *jobs.Job) error {
		ctx, cancel := context.WithTimeout(job.Ctx, timeout)
		defer cancel()

		n, err := store.DeleteExpired(ctx)
		if err != nil {
			return storeError("delete expired", err)
		}
		if n > 0 {
			job.Logger.Info().Int64("num deleted sessions", n).Msg("Deleted expired sessions")
		}
		return nil
	})
}

// Implemented by stores that can report how many live sessions they hold.
type SessionCounter interface {
	Count(ctx context.Context) (anonymous int64, authenticated int64, err error)
}
