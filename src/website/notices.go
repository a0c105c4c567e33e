package website

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"git.carhub.se/carhub/carhub/src/config"
	"git.carhub.se/carhub/carhub/src/templates"
)

// Notices that survive a redirect, like "You have been logged out."
const NoticesCookieName = "carhub_notices"

func getNoticesFromCookie(c *RequestContext) []templates.Notice {
	cookie, err := c.Req.Cookie(NoticesCookieName)
	if err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			c.Logger.Warn().Err(err).Msg("failed to get notices cookie")
		}
		return nil
	}
	return deserializeNoticesFromCookie(cookie.Value)
}

func storeNoticesInCookie(c *RequestContext, res *ResponseData) {
	serialized := serializeNoticesForCookie(c, res.FutureNotices)
	if serialized != "" {
		noticesCookie := http.Cookie{
			Name:     NoticesCookieName,
			Value:    serialized,
			Path:     "/",
			Expires:  time.Now().Add(time.Minute * 5),
			Secure:   config.Config.Session.CookieSecure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		res.SetCookie(&noticesCookie)
	} else if !(res.StatusCode >= 300 && res.StatusCode < 400) {
		if _, err := c.Req.Cookie(NoticesCookieName); err == nil {
			// Shown once; don't clear on redirect
			res.SetCookie(&http.Cookie{
				Name:   NoticesCookieName,
				Path:   "/",
				MaxAge: -1,
			})
		}
	}
}

// Notices are stored as "class|content" pairs separated by tabs, base64
// encoded since cookie values can't hold arbitrary text.
func serializeNoticesForCookie(c *RequestContext, notices []templates.Notice) string {
	var builder strings.Builder
	maxSize := 1024
	size := 0
	for i, notice := range notices {
		sizeIncrease := len(notice.Class) + len(string(notice.Content)) + 1
		if i != 0 {
			sizeIncrease += 1
		}
		if size+sizeIncrease > maxSize {
			c.Logger.Warn().Interface("Notices", notices).Msg("Notices too big for cookie")
			break
		}

		if i != 0 {
			builder.WriteString("\t")
		}
		builder.WriteString(notice.Class)
		builder.WriteString("|")
		builder.WriteString(string(notice.Content))

		size += sizeIncrease
	}
	if builder.Len() == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(builder.String()))
}

func deserializeNoticesFromCookie(cookieVal string) []templates.Notice {
	decoded, err := base64.RawURLEncoding.DecodeString(cookieVal)
	if err != nil {
		return nil
	}

	var result []templates.Notice
	notices := strings.Split(string(decoded), "\t")
	for _, notice := range notices {
		parts := strings.SplitN(notice, "|", 2)
		if len(parts) == 2 {
			// Cookies come from the client, so the content is escaped as text.
			result = append(result, templates.Notice{
				Class:   noticeClass(parts[0]),
				Content: templates.NoticeText(parts[1]),
			})
		}
	}
	return result
}

func noticeClass(class string) string {
	switch class {
	case "success", "warn", "failure":
		return class
	default:
		return "info"
	}
}

func storeNoticesInCookieMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		storeNoticesInCookie(c, &res)
		return res
	}
}
