package website

import (
	"io/fs"
	"net/http"
	"os"

	"git.carhub.se/carhub/carhub/src/auth"
	"git.carhub.se/carhub/carhub/src/carurl"
)

func NewWebsiteRoutes(gate *auth.Gate, publicDir string) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			trackRequestPerf,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
		},
	}

	// No sessions for these. Probes and asset requests shouldn't create one.
	routes.GET(carurl.RegexHealthz, Healthz)
	routes.GET(carurl.RegexPublic, PublicFiles(publicDir))

	site := routes.WithMiddleware(
		withGate(gate),
		loadSession,
		storeNoticesInCookieMiddleware,
	)

	site.GET(carurl.RegexHomepage, Homepage)
	site.GET(carurl.RegexContactPage, ContactPage)
	site.GET(carurl.RegexCars, CarsPage)
	site.GET(carurl.RegexCarDetail, CarDetailPage)

	loggedOut := site.WithMiddleware(redirectIfAuthenticated(carurl.BuildLoggedIn))
	loggedOut.GET(carurl.RegexLoginPage, LoginPage)
	site.GET(carurl.RegexLoggedIn, needsAuth(LoggedInPage))

	actions := routes.WithMiddleware(
		withGate(gate),
		lookupSession,
		storeNoticesInCookieMiddleware,
	)
	actions.POST(carurl.RegexLoginAction, Login)
	actions.POST(carurl.RegexLogoutAction, Logout)

	site.AnyMethod(carurl.RegexCatchAll, FourOhFour)

	return router
}

func PublicFiles(publicDir string) Handler {
	fileServer := http.StripPrefix(carurl.StaticPath+"/", http.FileServer(http.FS(publicFS{os.DirFS(publicDir)})))
	return func(c *RequestContext) ResponseData {
		var res ResponseData
		fileServer.ServeHTTP(&res, c.Req)
		return res
	}
}

// Serves files only; directories look like they don't exist.
type publicFS struct {
	fs.FS
}

func (p publicFS) Open(name string) (fs.File, error) {
	f, err := p.FS.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f, nil
}

