package website

import (
	"net/http"

	"git.carhub.se/carhub/carhub/src/templates"
)

func FourOhFour(c *RequestContext) ResponseData {
	var res ResponseData
	res.StatusCode = http.StatusNotFound

	templateData := struct {
		templates.BaseData
		Wanted string
	}{
		BaseData: getBaseData(c, "Page not found"),
		Wanted:   c.Req.URL.Path,
	}
	res.MustWriteTemplate("404.html", templateData, c.Perf)
	return res
}
