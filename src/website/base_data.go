package website

import (
	"git.carhub.se/carhub/carhub/src/carurl"
	"git.carhub.se/carhub/carhub/src/templates"
)

func getBaseData(c *RequestContext, title string) templates.BaseData {
	var templateUser *templates.User
	if user := c.CurrentUser(); user != nil {
		templateUser = templates.SessionUserToTemplate(user)
	}

	return templates.BaseData{
		Title:      title,
		CurrentUrl: c.FullUrl(),
		Notices:    getNoticesFromCookie(c),

		IsAuth: templateUser != nil,
		User:   templateUser,

		Header: templates.Header{
			HomepageUrl:     carurl.BuildHomepage(),
			CarsUrl:         carurl.BuildCars(),
			ContactUrl:      carurl.BuildContactPage(),
			LoginPageUrl:    carurl.BuildLoginPage(),
			LoggedInUrl:     carurl.BuildLoggedIn(),
			LogoutActionUrl: carurl.BuildLogoutAction(),
		},
		Footer: templates.Footer{
			HomepageUrl: carurl.BuildHomepage(),
			ContactUrl:  carurl.BuildContactPage(),
		},
	}
}
