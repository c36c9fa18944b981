package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// launchers maps GOOS to the command that hands a URL to the default browser.
var launchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenBrowser hands url to the platform's default browser. The auth login
// flow uses it to bring up the Spotify consent page; callers print the URL
// themselves when it fails, so a headless session can still sign in.
func OpenBrowser(url string) error {
	argv, ok := launchers[runtime.GOOS]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := startCommand(argv[0], append(argv[1:], url)...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
