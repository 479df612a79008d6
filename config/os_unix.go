//go:build !windows

package config

import (
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/term"
)

var browserNames = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"headless-shell",
}

const macBrowser = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"

// CleanFileName makes report name usable as a file name.
func CleanFileName(in string) string {
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if sym < 0x20 || strings.ContainsRune(string(os.PathSeparator)+string(os.PathListSeparator), sym) {
			return -1
		}
		return sym
	}, in), ".")
	if len(out) == 0 {
		out = "_unnamed_"
	}
	return out
}

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}

// findBrowser looks for installed chromium flavor on PATH.
func findBrowser() string {
	for _, name := range browserNames {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	if runtime.GOOS == "darwin" {
		if _, err := os.Stat(macBrowser); err == nil {
			return macBrowser
		}
	}
	return ""
}
