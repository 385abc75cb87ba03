package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommand builds the command that opens url with the desktop's default handler on goos.
func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: cannot open a browser on %s", ErrServiceUnavailable, goos)
	}
}

// OpenURL opens url (a Slack permalink or track link) in the default browser without waiting for it.
func OpenURL(url string) error {
	if url == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}

	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return cmd.Process.Release()
}
