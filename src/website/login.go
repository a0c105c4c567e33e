package website

import (
	"errors"
	"net/http"

	"git.carhub.se/carhub/carhub/src/auth"
	"git.carhub.se/carhub/carhub/src/carurl"
	"git.carhub.se/carhub/carhub/src/oops"
	"git.carhub.se/carhub/carhub/src/templates"
)

// Shown for every kind of bad login so that responses don't reveal which
// field was wrong.
const incorrectCredentialsMessage = "Incorrect username or password"

const loginUnavailableMessage = "We couldn't log you in right now. Please try again in a moment."

type LoginPageData struct {
	templates.BaseData
	LoginActionUrl string
	Username       string
	Error          string
}

func renderLoginPage(c *RequestContext, status int, username string, errMsg string) ResponseData {
	var res ResponseData
	res.StatusCode = status
	res.MustWriteTemplate("login.html", LoginPageData{
		BaseData:       getBaseData(c, "Log in"),
		LoginActionUrl: carurl.BuildLoginAction(),
		Username:       username,
		Error:          errMsg,
	}, c.Perf)
	return res
}

func LoginPage(c *RequestContext) ResponseData {
	return renderLoginPage(c, http.StatusOK, "", "")
}

func Login(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, oops.New(err, "request must contain form data"))
	}

	username := form.Get("username")
	password := form.Get("password")

	var sessionId string
	if c.CurrentSession != nil {
		sessionId = c.CurrentSession.ID
	}

	result, err := c.Gate.Login(c, sessionId, username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log := c.Logger.Info().Str("username", username)
			if ip := c.GetIP(); ip != nil {
				log = log.Str("ip", ip.String())
			}
			log.Msg("failed login attempt")
			return renderLoginPage(c, http.StatusUnauthorized, username, incorrectCredentialsMessage)
		}

		res := renderLoginPage(c, http.StatusServiceUnavailable, username, loginUnavailableMessage)
		res.Errors = append(res.Errors, oops.New(err, "failed to log in user"))
		return res
	}

	c.CurrentSession = result.Session
	c.Logger.Info().Str("username", username).Msg("user logged in")

	res := c.Redirect(carurl.BuildLoggedIn(), http.StatusSeeOther)
	res.SetSessionCookie(result.Cookie)
	return res
}

func Logout(c *RequestContext) ResponseData {
	wasAuthenticated := c.IsAuthenticated()

	// Prefer the session resolved for this request; fall back to the cookie
	// so that a session is still deleted when the store was briefly down.
	sessionId, _ := c.Gate.SessionIdFromRequest(c.Req)
	if c.CurrentSession != nil {
		sessionId = c.CurrentSession.ID
	}

	result := c.Gate.Logout(c, sessionId)
	c.CurrentSession = nil

	res := c.Redirect(carurl.BuildHomepage(), http.StatusSeeOther)
	res.SetSessionCookie(result.Cookie)
	if wasAuthenticated {
		res.AddFutureNotice("success", "You have been logged out.")
	}
	return res
}
