package shared

import (
	"errors"
	"runtime"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	if _, ok := launchers[runtime.GOOS]; !ok {
		t.Skipf("no browser launcher for %s", runtime.GOOS)
	}

	t.Run("Passes URL To Launcher", func(t *testing.T) {
		orig := startCommand
		defer func() { startCommand = orig }()

		var gotName string
		var gotArgs []string
		startCommand = func(name string, args ...string) error {
			gotName = name
			gotArgs = args
			return nil
		}

		if err := OpenBrowser("https://accounts.spotify.com/authorize?state=x"); err != nil {
			t.Fatalf("expected open to succeed, got %v", err)
		}

		want := launchers[runtime.GOOS]
		if gotName != want[0] {
			t.Errorf("expected launcher %q, got %q", want[0], gotName)
		}
		if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "https://accounts.spotify.com/authorize?state=x" {
			t.Errorf("expected URL as final argument, got %v", gotArgs)
		}
	})

	t.Run("Wraps Launcher Failure", func(t *testing.T) {
		orig := startCommand
		defer func() { startCommand = orig }()

		startCommand = func(name string, args ...string) error {
			return errors.New("no display")
		}

		err := OpenBrowser("https://example.com")
		if err == nil {
			t.Fatal("expected an error from a failing launcher")
		}
	})
}
