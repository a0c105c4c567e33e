package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"git.carhub.se/carhub/carhub/src/logging"
	"git.carhub.se/carhub/carhub/src/models"
)

// Returned by Login for a wrong username, a wrong password, or a missing
// field alike. Callers must not tell these apart in responses.
var ErrInvalidCredentials = errors.New("invalid credentials")

type CredentialVerifier interface {
	Verify(username, password string) bool
}

// Optionally implemented by a CredentialVerifier to describe the user behind
// a verified username. Without it the user is a plain non-admin.
type UserDescriber interface {
	DescribeUser(username string) models.SessionUser
}

// StaticCredentials accepts exactly one username/password pair.
type StaticCredentials struct {
	Username string
	Password string
	IsAdmin  bool
}

var _ CredentialVerifier = StaticCredentials{}
var _ UserDescriber = StaticCredentials{}

// Case-sensitive exact match, compared in constant time. Both sides are
// hashed first so the comparison does not leak lengths.
func (c StaticCredentials) Verify(username, password string) bool {
	wantUser := sha256.Sum256([]byte(c.Username))
	gotUser := sha256.Sum256([]byte(username))
	wantPass := sha256.Sum256([]byte(c.Password))
	gotPass := sha256.Sum256([]byte(password))

	userOk := subtle.ConstantTimeCompare(wantUser[:], gotUser[:])
	passOk := subtle.ConstantTimeCompare(wantPass[:], gotPass[:])
	return userOk&passOk == 1
}

func (c StaticCredentials) DescribeUser(username string) models.SessionUser {
	return models.SessionUser{
		Username: username,
		IsAdmin:  c.IsAdmin,
	}
}

// Gate is the only thing that moves a session between anonymous and
// authenticated.
type Gate struct {
	Store    SessionStore
	Verifier CredentialVerifier
	Cookies  CookieSettings

	// Upper bound on every store call.
	StoreTimeout time.Duration
	// Sessions are re-extended (and the cookie reissued) once this much of
	// their lifetime has passed.
	RefreshInterval time.Duration

	Now func() time.Time
}

type GateOptions struct {
	Cookies         CookieSettings
	StoreTimeout    time.Duration
	RefreshInterval time.Duration
}

func NewGate(store SessionStore, verifier CredentialVerifier, opts GateOptions) *Gate {
	return &Gate{
		Store:           store,
		Verifier:        verifier,
		Cookies:         opts.Cookies,
		StoreTimeout:    opts.StoreTimeout,
		RefreshInterval: opts.RefreshInterval,
		Now:             time.Now,
	}
}

// The outcome of an operation that must be followed by a Set-Cookie.
type SessionResult struct {
	Session *models.Session
	Cookie  *http.Cookie
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.StoreTimeout)
}

func (g *Gate) IsAuthenticated(sess *models.Session) bool {
	return sess != nil && sess.User != nil && !sess.IsExpired(g.now())
}

// Returns the session id carried by the request's cookie, if the cookie is
// present and correctly signed.
func (g *Gate) SessionIdFromRequest(req *http.Request) (string, bool) {
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie is the only error Cookie ever returns.
		return "", false
	}
	return g.Cookies.VerifySessionId(cookie.Value)
}

/*
Resolve finds the session for a request, creating an anonymous one if the
client has none. Cookie is set whenever the client needs a new Set-Cookie:
for a new session, or when an existing session was extended.

On a store failure the error is a *SessionStoreError. Session may still be set
if only the extension failed; otherwise the request should proceed as
anonymous.
*/
func (g *Gate) Resolve(ctx context.Context, sessionId string) (SessionResult, error) {
	return g.resolve(ctx, sessionId, true)
}

// Lookup is Resolve without the creation step. A client with no live session
// gets an empty result and no cookie.
func (g *Gate) Lookup(ctx context.Context, sessionId string) (SessionResult, error) {
	return g.resolve(ctx, sessionId, false)
}

func (g *Gate) resolve(ctx context.Context, sessionId string, create bool) (SessionResult, error) {
	ctx, cancel := g.storeContext(ctx)
	defer cancel()

	if sessionId != "" {
		result, err := g.existingSession(ctx, sessionId)
		if err != nil || result.Session != nil {
			return result, err
		}
	}

	if !create {
		return SessionResult{}, nil
	}

	sess, err := g.Store.Create(ctx)
	if err != nil {
		return SessionResult{}, storeError("create", err)
	}
	return SessionResult{Session: sess, Cookie: g.Cookies.NewSessionCookie(sess)}, nil
}

// Returns an empty result if the session is missing or expired.
func (g *Gate) existingSession(ctx context.Context, sessionId string) (SessionResult, error) {
	sess, err := g.Store.Get(ctx, sessionId)
	if errors.Is(err, ErrNoSession) {
		return SessionResult{}, nil
	}
	if err != nil {
		return SessionResult{}, storeError("get", err)
	}

	if !g.needsRefresh(sess) {
		return SessionResult{Session: sess}, nil
	}

	touched, err := g.Store.Touch(ctx, sessionId)
	if errors.Is(err, ErrNoSession) {
		return SessionResult{}, nil
	}
	if err != nil {
		return SessionResult{Session: sess}, storeError("touch", err)
	}
	return SessionResult{Session: touched, Cookie: g.Cookies.NewSessionCookie(touched)}, nil
}

func (g *Gate) needsRefresh(sess *models.Session) bool {
	if g.RefreshInterval <= 0 {
		return false
	}
	remaining := sess.ExpiresAt.Sub(g.now())
	return remaining < g.Cookies.MaxAge-g.RefreshInterval
}

/*
Login checks the credentials and, if they match, attaches the user to the
session with the given id. If that session is gone (or the id is empty), a
new one is created. The returned Cookie must be set on the response.

Errors are ErrInvalidCredentials, in which case nothing was changed, or a
*SessionStoreError.
*/
func (g *Gate) Login(ctx context.Context, sessionId, username, password string) (SessionResult, error) {
	if username == "" || password == "" || !g.Verifier.Verify(username, password) {
		return SessionResult{}, ErrInvalidCredentials
	}

	user := models.SessionUser{Username: username}
	if describer, ok := g.Verifier.(UserDescriber); ok {
		user = describer.DescribeUser(username)
	}

	ctx, cancel := g.storeContext(ctx)
	defer cancel()

	if sessionId != "" {
		sess, err := g.Store.SetUser(ctx, sessionId, &user)
		if err == nil {
			return SessionResult{Session: sess, Cookie: g.Cookies.NewSessionCookie(sess)}, nil
		} else if !errors.Is(err, ErrNoSession) {
			return SessionResult{}, storeError("set user", err)
		}
	}

	created, err := g.Store.Create(ctx)
	if err != nil {
		return SessionResult{}, storeError("create", err)
	}
	sess, err := g.Store.SetUser(ctx, created.ID, &user)
	if err != nil {
		return SessionResult{}, storeError("set user", err)
	}
	return SessionResult{Session: sess, Cookie: g.Cookies.NewSessionCookie(sess)}, nil
}

// Logout destroys the session and returns the cookie that clears it on the
// client. Logging out an anonymous or unknown session is a no-op. Store
// failures are logged, never returned.
func (g *Gate) Logout(ctx context.Context, sessionId string) SessionResult {
	if sessionId != "" {
		storeCtx, cancel := g.storeContext(ctx)
		defer cancel()

		err := g.Store.Delete(storeCtx, sessionId)
		if err != nil {
			logging.ExtractLogger(ctx).Error().Err(storeError("delete", err)).Msg("failed to delete session on logout")
		}
	}

	return SessionResult{Cookie: g.Cookies.DeleteSessionCookie()}
}
