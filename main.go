package main

import (
	_ "git.carhub.se/carhub/carhub/src/admintools"
	_ "git.carhub.se/carhub/carhub/src/migration"
	"git.carhub.se/carhub/carhub/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
