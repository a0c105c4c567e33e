// Package ansicolor holds the terminal escape codes used by the pretty log writer.
package ansicolor

import (
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
)

var Reset = "\033[0m"
var Bold = "\033[1m"

var Red = "\033[31m"
var Yellow = "\033[33m"
var Blue = "\033[34m"
var Gray = "\033[37m"

var BgRed = "\033[41m"
var BgYellow = "\033[43m"
var BgBlue = "\033[44m"

func init() {
	if runtime.GOOS == "windows" || !isatty.IsTerminal(os.Stderr.Fd()) {
		Disable()
	}
}

// Disable blanks every code, for output that is not a terminal.
func Disable() {
	Reset = ""
	Bold = ""
	Red = ""
	Yellow = ""
	Blue = ""
	Gray = ""
	BgRed = ""
	BgYellow = ""
	BgBlue = ""
}
