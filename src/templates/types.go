package templates

import (
	"html/template"
)

// Every page is rendered with a struct embedding BaseData.
type BaseData struct {
	Title      string
	CurrentUrl string
	Notices    []Notice

	IsAuth bool
	User   *User

	Header Header
	Footer Footer
}

type Header struct {
	HomepageUrl     string
	CarsUrl         string
	ContactUrl      string
	LoginPageUrl    string
	LoggedInUrl     string
	LogoutActionUrl string
}

type Footer struct {
	HomepageUrl string
	ContactUrl  string
}

type Notice struct {
	Content template.HTML
	Class   string
}

// Escapes plain text for use as notice content.
func NoticeText(text string) template.HTML {
	return template.HTML(template.HTMLEscapeString(text))
}

type User struct {
	Username string
	IsAdmin  bool
}

type Car struct {
	ID    string
	Title string
	Url   string
}
