package visualization

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
)

// browserCommand returns the command that opens target with the platform's
// default handler.
func browserCommand(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "linux":
		return exec.Command("xdg-open", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens the specified URL in the user's default browser.
func OpenBrowser(target string) error {
	cmd, err := browserCommand(runtime.GOOS, target)
	if err != nil {
		return err
	}
	return cmd.Start()
}

// FileURL converts a local path, such as a rendered chart, to a file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
