// Package browser opens the local chat UI in the user's default browser
// once the server is listening.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// OpenURL opens url in the default browser, falling back to a
// platform launcher command when open-golang fails.
func OpenURL(url string) error {
	log.Debugf("Opening %s in default browser", url)

	if err := open.Run(url); err != nil {
		log.Debugf("open-golang failed: %v, trying platform launcher", err)
		return openURLPlatform(url)
	}
	return nil
}

func openURLPlatform(url string) error {
	cmd, err := launcherCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}

	log.Debugf("Running command: %s %v", cmd.Path, cmd.Args[1:])
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	return nil
}

// launcherCommand builds the platform-specific command that opens url.
func launcherCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "linux":
		launchers := []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}
		for _, launcher := range launchers {
			if _, err := exec.LookPath(launcher); err == nil {
				return exec.Command(launcher, url), nil
			}
		}
		return nil, fmt.Errorf("no browser launcher found on Linux system")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}
