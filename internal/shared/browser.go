package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser launches the system browser at url. The CLI login flow hands
// the authorization redirect to the user's browser through here.
//
// Unrecognized platforms fall back to xdg-open, which covers the BSDs and
// anything else freedesktop-shaped.
func OpenBrowser(url string) error {
	var name string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name, args = "cmd", []string{"/c", "start"}
	default:
		name = "xdg-open"
	}
	args = append(args, url)

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
