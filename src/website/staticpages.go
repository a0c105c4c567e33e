package website

import (
	"fmt"

	"git.carhub.se/carhub/carhub/src/carurl"
	"git.carhub.se/carhub/carhub/src/templates"
)

const ContactEmail = "hello@carhub.se"

func Homepage(c *RequestContext) ResponseData {
	var res ResponseData
	res.MustWriteTemplate("home.html", getBaseData(c, "Home"), c.Perf)
	return res
}

func ContactPage(c *RequestContext) ResponseData {
	type contactData struct {
		templates.BaseData
		Email string
	}

	var res ResponseData
	res.MustWriteTemplate("contact.html", contactData{
		BaseData: getBaseData(c, "Contact"),
		Email:    ContactEmail,
	}, c.Perf)
	return res
}

type CarsPageData struct {
	templates.BaseData
	Cars []templates.Car
}

// There is no car data yet, so the list is always empty.
func CarsPage(c *RequestContext) ResponseData {
	var res ResponseData
	res.MustWriteTemplate("cars.html", CarsPageData{
		BaseData: getBaseData(c, "Cars"),
		Cars:     []templates.Car{},
	}, c.Perf)
	return res
}

type CarDetailPageData struct {
	templates.BaseData
	CarID   string
	CarsUrl string
}

func CarDetailPage(c *RequestContext) ResponseData {
	id := c.PathParams["id"]

	var res ResponseData
	res.MustWriteTemplate("car_detail.html", CarDetailPageData{
		BaseData: getBaseData(c, fmt.Sprintf("Car #%s", id)),
		CarID:    id,
		CarsUrl:  carurl.BuildCars(),
	}, c.Perf)
	return res
}

func LoggedInPage(c *RequestContext) ResponseData {
	var res ResponseData
	res.MustWriteTemplate("loggedin.html", getBaseData(c, "Logged in"), c.Perf)
	return res
}

func Healthz(c *RequestContext) ResponseData {
	var res ResponseData
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.Header().Set("Cache-Control", "no-store")
	res.Write([]byte("ok"))
	return res
}
