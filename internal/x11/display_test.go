package x11

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

// stubDisplayEnv replaces environment access and session detection. The
// returned map records XAUTHORITY exports.
func stubDisplayEnv(t *testing.T, env map[string]string, session func() (string, string), sockets func(string) string) map[string]string {
	t.Helper()
	origGetenv, origSetenv := getenvFn, setenvFn
	origSession, origSockets := sessionX11EnvFn, socketDisplayFn

	exported := make(map[string]string)
	getenvFn = func(k string) string { return env[k] }
	setenvFn = func(k, v string) error {
		exported[k] = v
		return nil
	}
	sessionX11EnvFn = session
	socketDisplayFn = sockets

	t.Cleanup(func() {
		getenvFn, setenvFn = origGetenv, origSetenv
		sessionX11EnvFn, socketDisplayFn = origSession, origSockets
	})
	return exported
}

func TestResolveDisplay_ConfiguredWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	exported := stubDisplayEnv(t,
		map[string]string{"DISPLAY": ":7", "XAUTHORITY": "/tmp/xauth-env"},
		func() (string, string) { t.Fatal("session detection should not run"); return "", "" },
		func(string) string { return ":88" },
	)

	got, err := ResolveDisplay(":1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != ":1" {
		t.Fatalf("display = %q, want :1", got)
	}
	if len(exported) != 0 {
		t.Fatalf("XAUTHORITY already set, nothing to export: %v", exported)
	}
}

func TestResolveDisplay_UsesEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubDisplayEnv(t,
		map[string]string{"DISPLAY": ":7", "XAUTHORITY": "/tmp/xauth-env"},
		func() (string, string) { return ":99", "/tmp/unused" },
		func(string) string { return ":88" },
	)

	got, err := ResolveDisplay("", "")
	if err != nil || got != ":7" {
		t.Fatalf("display = %q (%v), want :7", got, err)
	}
}

func TestResolveDisplay_UsesSessionAndExportsXAuthority(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	exported := stubDisplayEnv(t,
		map[string]string{},
		func() (string, string) { return ":5", "/tmp/xauth-detected" },
		func(string) string { return ":88" },
	)

	got, err := ResolveDisplay("", "")
	if err != nil || got != ":5" {
		t.Fatalf("display = %q (%v), want :5", got, err)
	}
	if exported["XAUTHORITY"] != "/tmp/xauth-detected" {
		t.Fatalf("expected detected XAUTHORITY exported, got %v", exported)
	}
}

func TestResolveDisplay_FallsBackToSocketsAndHomeXAuthority(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	xauth := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(xauth, []byte("cookie"), 0600); err != nil {
		t.Fatalf("write xauthority: %v", err)
	}
	exported := stubDisplayEnv(t,
		map[string]string{},
		func() (string, string) { return "", "" },
		func(dir string) string {
			if dir != x11SocketDir {
				t.Fatalf("unexpected socket dir %q", dir)
			}
			return ":2"
		},
	)

	got, err := ResolveDisplay("", "")
	if err != nil || got != ":2" {
		t.Fatalf("display = %q (%v), want :2", got, err)
	}
	if exported["XAUTHORITY"] != xauth {
		t.Fatalf("expected %s exported, got %v", xauth, exported)
	}
}

func TestResolveDisplay_NoDisplay(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubDisplayEnv(t,
		map[string]string{},
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)

	_, err := ResolveDisplay("", "")
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if !strings.Contains(err.Error(), "DISPLAY is not set") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func stubLoginctl(t *testing.T, show map[string]string, environ map[string]string) {
	t.Helper()
	origRun, origRead := runCommandOutputFn, readFileFn
	t.Cleanup(func() { runCommandOutputFn, readFileFn = origRun, origRead })

	uid := strconv.Itoa(os.Getuid())
	runCommandOutputFn = func(name string, args ...string) (string, error) {
		if name != "loginctl" {
			return "", errors.New("unexpected command " + name)
		}
		switch {
		case reflect.DeepEqual(args, []string{"list-sessions", "--no-legend"}):
			return "  9 4242 bob seat0 tty3\n  3 " + uid + " alice seat0 tty2\n  4 " + uid + " alice - pts/1\n", nil
		case len(args) == 6 && args[0] == "show-session":
			if out, ok := show[args[1]]; ok {
				return out, nil
			}
		}
		return "", errors.New("unexpected loginctl call")
	}
	readFileFn = func(path string) ([]byte, error) {
		if data, ok := environ[path]; ok {
			return []byte(data), nil
		}
		return nil, os.ErrNotExist
	}
}

func TestSessionX11Env_LeaderEnvironmentWins(t *testing.T) {
	stubLoginctl(t,
		map[string]string{"3": "Display=:0\nLeader=1234\n"},
		map[string]string{"/proc/1234/environ": "HOME=/home/alice\x00DISPLAY=:1\x00XAUTHORITY=/run/user/1000/gdm/Xauthority\x00"},
	)

	display, xauth := sessionX11Env()
	if display != ":1" || xauth != "/run/user/1000/gdm/Xauthority" {
		t.Fatalf("got (%q, %q)", display, xauth)
	}
}

func TestSessionX11Env_XwaylandSessionWithoutDisplayProperty(t *testing.T) {
	stubLoginctl(t,
		map[string]string{"3": "Display=\nLeader=1234\n"},
		map[string]string{"/proc/1234/environ": "DISPLAY=:0\x00WAYLAND_DISPLAY=wayland-0\x00"},
	)

	display, xauth := sessionX11Env()
	if display != ":0" || xauth != "" {
		t.Fatalf("got (%q, %q)", display, xauth)
	}
}

func TestSessionX11Env_SkipsSessionsWithoutDisplay(t *testing.T) {
	stubLoginctl(t,
		map[string]string{
			"3": "Display=\nLeader=0\n",
			"4": "Display=:2\nLeader=999\n",
		},
		nil,
	)

	display, xauth := sessionX11Env()
	if display != ":2" || xauth != "" {
		t.Fatalf("got (%q, %q)", display, xauth)
	}
}

func TestSocketDisplay(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X2", "X1", "not-a-display", "Xfoo"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if got := socketDisplay(dir); got != ":1" {
		t.Fatalf("display = %q, want :1", got)
	}
	if got := socketDisplay(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("expected empty display for missing dir, got %q", got)
	}
}
