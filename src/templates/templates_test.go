package templates

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesParse(t *testing.T) {
	Init()

	names := Names()
	for _, expected := range []string{
		"404.html",
		"car_detail.html",
		"cars.html",
		"contact.html",
		"error.html",
		"home.html",
		"loggedin.html",
		"login.html",
	} {
		assert.Contains(t, names, expected)
	}
	assert.NotContains(t, names, "base.html", "layouts are not pages")
}

func TestGetTemplateMissing(t *testing.T) {
	assert.Panics(t, func() {
		GetTemplate("nope.html")
	})
}

func testBaseData(isAuth bool) BaseData {
	bd := BaseData{
		Title: "Test",
		Header: Header{
			HomepageUrl:     "/",
			CarsUrl:         "/cars",
			ContactUrl:      "/contact",
			LoginPageUrl:    "/login",
			LoggedInUrl:     "/loggedin",
			LogoutActionUrl: "/logout",
		},
		Footer: Footer{
			HomepageUrl: "/",
			ContactUrl:  "/contact",
		},
	}
	if isAuth {
		bd.IsAuth = true
		bd.User = &User{Username: "admin", IsAdmin: true}
	}
	return bd
}

func TestBaseLayout(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, GetTemplate("home.html").Execute(&buf, testBaseData(false)))

		out := buf.String()
		assert.Contains(t, out, "<title>Test | CarHub</title>")
		assert.Contains(t, out, `href="/login"`)
		assert.NotContains(t, out, "Log out")
		assert.Contains(t, out, fmt.Sprintf("&copy; %d CarHub", time.Now().Year()))
	})
	t.Run("authenticated", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, GetTemplate("home.html").Execute(&buf, testBaseData(true)))

		out := buf.String()
		assert.Contains(t, out, "admin")
		assert.Contains(t, out, "Log out")
		assert.NotContains(t, out, `href="/login"`)
	})
}

func TestNotices(t *testing.T) {
	bd := testBaseData(false)
	bd.Notices = append(bd.Notices, Notice{Class: "success", Content: NoticeText("You have been logged out.")})

	var buf bytes.Buffer
	require.NoError(t, GetTemplate("home.html").Execute(&buf, bd))
	assert.Contains(t, buf.String(), `<div class="notice notice-success">You have been logged out.</div>`)
}

func TestCarsEmpty(t *testing.T) {
	data := struct {
		BaseData
		Cars []Car
	}{
		BaseData: testBaseData(false),
	}

	var buf bytes.Buffer
	require.NoError(t, GetTemplate("cars.html").Execute(&buf, data))
	assert.Contains(t, buf.String(), "There are no cars listed yet.")
}

func TestLoginEscapesInput(t *testing.T) {
	data := struct {
		BaseData
		LoginActionUrl string
		Username       string
		Error          string
	}{
		BaseData:       testBaseData(false),
		LoginActionUrl: "/login",
		Username:       `"><script>alert(1)</script>`,
		Error:          "Incorrect username or password",
	}

	var buf bytes.Buffer
	require.NoError(t, GetTemplate("login.html").Execute(&buf, data))
	out := buf.String()
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "Incorrect username or password")
}
