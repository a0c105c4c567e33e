package carurl

import (
	"net/url"
	"regexp"
	"strings"
	"testing"

	"git.carhub.se/carhub/carhub/src/config"
	"github.com/stretchr/testify/assert"
)

func TestUrl(t *testing.T) {
	defer func() {
		SetGlobalBaseUrl(config.Config.BaseUrl)
	}()
	SetGlobalBaseUrl("http://carhub.test/")

	t.Run("no query", func(t *testing.T) {
		result := Url("/test/foo", nil)
		assert.Equal(t, "http://carhub.test/test/foo", result)
	})
	t.Run("yes query", func(t *testing.T) {
		result := Url("/test/foo", []Q{{"bar", "baz"}, {"zig??", "zig & zag!!"}})
		assert.Equal(t, "http://carhub.test/test/foo?bar=baz&zig%3F%3F=zig+%26+zag%21%21", result)
	})
}

func TestRootRelative(t *testing.T) {
	defer func() {
		SetGlobalBaseUrl(config.Config.BaseUrl)
	}()
	SetGlobalBaseUrl("")

	assert.Equal(t, "/", BuildHomepage())
	assert.Equal(t, "/cars/7", BuildCarDetail("7"))
}

func TestHomepage(t *testing.T) {
	AssertRegexMatch(t, BuildHomepage(), RegexHomepage, nil)
	AssertRegexNoMatch(t, BuildContactPage(), RegexHomepage)
}

func TestContactPage(t *testing.T) {
	AssertRegexMatch(t, BuildContactPage(), RegexContactPage, nil)
}

func TestCars(t *testing.T) {
	AssertRegexMatch(t, BuildCars(), RegexCars, nil)
	AssertRegexMatch(t, "/cars/", RegexCars, nil)
	AssertRegexNoMatch(t, BuildCars(), RegexCarDetail)
}

func TestCarDetail(t *testing.T) {
	AssertRegexMatch(t, BuildCarDetail("42"), RegexCarDetail, map[string]string{"id": "42"})
	AssertRegexMatch(t, BuildCarDetail("abc"), RegexCarDetail, map[string]string{"id": "abc"})
	AssertRegexNoMatch(t, "/cars/1/2", RegexCarDetail)
	assert.Panics(t, func() { BuildCarDetail("") })
	assert.Panics(t, func() { BuildCarDetail(" ") })
	assert.Panics(t, func() { BuildCarDetail("a/b") })
}

func TestLogin(t *testing.T) {
	AssertRegexMatch(t, BuildLoginPage(), RegexLoginPage, nil)
	AssertRegexMatch(t, BuildLoginAction(), RegexLoginAction, nil)
}

func TestLoggedIn(t *testing.T) {
	AssertRegexMatch(t, BuildLoggedIn(), RegexLoggedIn, nil)
}

func TestLogout(t *testing.T) {
	AssertRegexMatch(t, BuildLogoutAction(), RegexLogoutAction, nil)
}

func TestHealthz(t *testing.T) {
	AssertRegexMatch(t, BuildHealthz(), RegexHealthz, nil)
}

func TestPublic(t *testing.T) {
	AssertRegexMatch(t, BuildPublic("test"), RegexPublic, nil)
	AssertRegexMatch(t, BuildPublic("/test"), RegexPublic, nil)
	AssertRegexMatch(t, BuildPublic("/test/"), RegexPublic, nil)
	AssertRegexMatch(t, BuildPublic("/test/thing/image.png"), RegexPublic, nil)
	assert.Panics(t, func() { BuildPublic("") })
	assert.Panics(t, func() { BuildPublic("/") })
	assert.Panics(t, func() { BuildPublic("/thing//image.png") })
	assert.Panics(t, func() { BuildPublic("/thing/ /image.png") })
}

func AssertRegexMatch(t *testing.T, fullUrl string, regex *regexp.Regexp, paramsToVerify map[string]string) {
	t.Helper()

	parsed, err := url.Parse(fullUrl)
	ok := assert.Nilf(t, err, "Full url could not be parsed: %s", fullUrl)
	if !ok {
		return
	}

	requestPath := parsed.Path
	if len(requestPath) == 0 {
		requestPath = "/"
	}
	match := regex.FindStringSubmatch(requestPath)
	if !assert.NotNilf(t, match, "Url did not match regex: [%s] vs [%s]", requestPath, regex.String()) {
		return
	}

	if paramsToVerify != nil {
		subexpNames := regex.SubexpNames()
		for i, matchedValue := range match {
			paramName := subexpNames[i]
			expectedValue, ok := paramsToVerify[paramName]
			if ok {
				assert.Equalf(t, expectedValue, matchedValue, "Param mismatch for [%s]", paramName)
				delete(paramsToVerify, paramName)
			}
		}
		if len(paramsToVerify) > 0 {
			unmatchedParams := make([]string, 0, len(paramsToVerify))
			for k := range paramsToVerify {
				unmatchedParams = append(unmatchedParams, k)
			}
			assert.Fail(t, "Expected match groups not found", strings.Join(unmatchedParams, ", "))
		}
	}
}

func AssertRegexNoMatch(t *testing.T, fullUrl string, regex *regexp.Regexp) {
	t.Helper()

	parsed, err := url.Parse(fullUrl)
	ok := assert.Nilf(t, err, "Full url could not be parsed: %s", fullUrl)
	if !ok {
		return
	}

	requestPath := parsed.Path
	if len(requestPath) == 0 {
		requestPath = "/"
	}
	match := regex.FindStringSubmatch(requestPath)
	assert.Nilf(t, match, "Url matched regex: [%s] vs [%s]", requestPath, regex.String())
}
