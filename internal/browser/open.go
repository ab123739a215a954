// Package browser opens the analyst dashboard in the system browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Command returns the platform command that opens target.
func Command(goos, target string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", target}
	case "darwin":
		return "open", []string{target}
	default: // linux + others
		return "xdg-open", []string{target}
	}
}

// Open starts the system browser on an http(s) URL without waiting for it.
func Open(target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an http(s) URL: %q", target)
	}
	name, args := Command(runtime.GOOS, u.String())
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
