package website

import (
	"fmt"
	"net/http"
	"time"

	"git.carhub.se/carhub/carhub/src/auth"
	"git.carhub.se/carhub/carhub/src/carurl"
	"git.carhub.se/carhub/carhub/src/oops"
	"git.carhub.se/carhub/carhub/src/perf"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(error)
				var err error
				if ok {
					err = oops.New(maybeError, "Recovered from panic")
				} else {
					err = oops.New(nil, "Recovered from panic with value: %v", recovered)
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

func trackRequestPerf(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		c.Perf = perf.MakeNewRequestPerf(c.Route, c.Req.Method, c.Req.URL.Path)
		defer func() {
			c.Perf.EndRequest()
			log := c.Logger.Info()
			blockStack := make([]time.Time, 0)
			for i, block := range c.Perf.Blocks {
				for len(blockStack) > 0 && block.End.After(blockStack[len(blockStack)-1]) {
					blockStack = blockStack[:len(blockStack)-1]
				}
				log.Str(fmt.Sprintf("[%4.d] At %9.2fms", i, c.Perf.MsFromStart(&block)), fmt.Sprintf("%*.s[%s] %s (%.4fms)", len(blockStack)*2, "", block.Category, block.Description, block.DurationMs()))
				blockStack = append(blockStack, block.End)
			}
			log.Int("status", res.StatusCode).Msg(fmt.Sprintf("Served [%s] %s in %.4fms", c.Perf.Method, c.Perf.Path, c.Perf.DurationMs()))
		}()

		return h(c)
	}
}

func withGate(gate *auth.Gate) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Gate = gate
			return h(c)
		}
	}
}

// Resolves the caller's session before the handler runs and sets the cookie
// afterwards if the session is new or was extended. Store failures are
// logged and the request carries on anonymous.
var loadSession = sessionMiddleware(true)

// Like loadSession, but never creates a session for a client without one.
// Used by the form actions, so a rejected login leaves no cookie behind.
var lookupSession = sessionMiddleware(false)

func sessionMiddleware(createAnonymous bool) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			b := c.Perf.StartBlock("SESSION", "Resolve session")
			sessionId, _ := c.Gate.SessionIdFromRequest(c.Req)
			var result auth.SessionResult
			var err error
			if createAnonymous {
				result, err = c.Gate.Resolve(c, sessionId)
			} else {
				result, err = c.Gate.Lookup(c, sessionId)
			}
			b.End()

			if err != nil {
				c.Logger.Error().Err(err).Msg("session store unavailable; continuing as anonymous")
			} else {
				c.CurrentSession = result.Session
			}

			res := h(c)

			if err == nil && result.Cookie != nil && !res.sessionCookieSet {
				res.SetSessionCookie(result.Cookie)
			}
			return res
		}
	}
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if !c.IsAuthenticated() {
			return c.Redirect(carurl.BuildLoginPage(), http.StatusSeeOther)
		}

		return h(c)
	}
}

func redirectIfAuthenticated(dest func() string) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			if c.IsAuthenticated() {
				return c.Redirect(dest(), http.StatusSeeOther)
			}

			return h(c)
		}
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
