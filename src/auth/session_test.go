package auth

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"git.carhub.se/carhub/carhub/src/models"
	"github.com/stretchr/testify/assert"
)

var testCookies = CookieSettings{
	Secret: "test secret",
	MaxAge: 7 * 24 * time.Hour,
}

func TestMakeSessionId(t *testing.T) {
	a := makeSessionId()
	b := makeSessionId()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43) // 32 bytes, raw url base64
	assert.NotContains(t, a, ".")
}

func TestSignedSessionId(t *testing.T) {
	signed := testCookies.SignSessionId("abc")

	id, ok := testCookies.VerifySessionId(signed)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	t.Run("tampered id", func(t *testing.T) {
		_, ok := testCookies.VerifySessionId("abd" + signed[3:])
		assert.False(t, ok)
	})
	t.Run("other secret", func(t *testing.T) {
		other := CookieSettings{Secret: "another secret"}
		_, ok := other.VerifySessionId(signed)
		assert.False(t, ok)
	})
	t.Run("malformed", func(t *testing.T) {
		for _, v := range []string{"", "abc", ".sig", "abc.", "."} {
			_, ok := testCookies.VerifySessionId(v)
			assert.False(t, ok, "value %q", v)
		}
	})
}

func TestSessionCookie(t *testing.T) {
	cookie := testCookies.NewSessionCookie(&models.Session{ID: "abc"})

	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, strings.HasPrefix(cookie.Value, "abc."))
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	deleted := testCookies.DeleteSessionCookie()
	assert.Equal(t, SessionCookieName, deleted.Name)
	assert.Equal(t, -1, deleted.MaxAge)
	assert.Equal(t, "/", deleted.Path)
}
