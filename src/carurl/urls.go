package carurl

import (
	"regexp"
	"strings"

	"git.carhub.se/carhub/carhub/src/oops"
)

var RegexHomepage = regexp.MustCompile("^/$")

func BuildHomepage() string {
	return Url("/", nil)
}

var RegexContactPage = regexp.MustCompile("^/contact$")

func BuildContactPage() string {
	return Url("/contact", nil)
}

var RegexCars = regexp.MustCompile("^/cars/?$")

func BuildCars() string {
	return Url("/cars", nil)
}

// Ids are opaque here. The detail page only echoes them back.
var RegexCarDetail = regexp.MustCompile(`^/cars/(?P<id>[^/]+)$`)

func BuildCarDetail(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		panic(oops.New(nil, "Invalid car id: %q", id))
	}
	return Url("/cars/"+id, nil)
}

var RegexLoginPage = regexp.MustCompile("^/login$")

func BuildLoginPage() string {
	return Url("/login", nil)
}

var RegexLoginAction = regexp.MustCompile("^/login$")

func BuildLoginAction() string {
	return Url("/login", nil)
}

var RegexLoggedIn = regexp.MustCompile("^/loggedin$")

func BuildLoggedIn() string {
	return Url("/loggedin", nil)
}

var RegexLogoutAction = regexp.MustCompile("^/logout$")

func BuildLogoutAction() string {
	return Url("/logout", nil)
}

var RegexHealthz = regexp.MustCompile("^/healthz$")

func BuildHealthz() string {
	return Url("/healthz", nil)
}

var RegexPublic = regexp.MustCompile("^" + StaticPath + "/.+$")

func BuildPublic(filepath string) string {
	filepath = strings.Trim(filepath, "/")
	if len(strings.TrimSpace(filepath)) == 0 {
		panic(oops.New(nil, "Attempted to build a /public url with no path"))
	}
	var builder strings.Builder
	builder.WriteString(StaticPath)
	pathParts := strings.Split(filepath, "/")
	for _, part := range pathParts {
		part = strings.TrimSpace(part)
		if len(part) == 0 {
			panic(oops.New(nil, "Attempted to build a /public url with blank path segments: %s", filepath))
		}
		builder.WriteRune('/')
		builder.WriteString(part)
	}
	return Url(builder.String(), nil)
}

var RegexCatchAll = regexp.MustCompile("^")
