package carurl

import (
	"net/url"
	"strings"

	"git.carhub.se/carhub/carhub/src/config"
)

const StaticPath = "/public"

type Q struct {
	Name  string
	Value string
}

var baseUrl string

func init() {
	SetGlobalBaseUrl(config.Config.BaseUrl)
}

// Built URLs are prefixed with this. An empty base url yields root-relative
// urls, which is what the site uses unless CARHUB_BASE_URL is set.
func SetGlobalBaseUrl(fullBaseUrl string) {
	baseUrl = strings.TrimRight(fullBaseUrl, "/")
}

func Url(path string, query []Q) string {
	result := baseUrl + "/" + trim(path)
	if q := encodeQuery(query); q != "" {
		result += "?" + q
	}
	return result
}

func trim(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

func encodeQuery(query []Q) string {
	result := url.Values{}
	for _, q := range query {
		result.Set(q.Name, q.Value)
	}
	return result.Encode()
}
