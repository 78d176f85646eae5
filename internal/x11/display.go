package x11

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	runCommandOutputFn = runCommandOutput
	readFileFn         = os.ReadFile
	readDirFn          = os.ReadDir
	getenvFn           = os.Getenv
	setenvFn           = os.Setenv
	sessionX11EnvFn    = sessionX11Env
	socketDisplayFn    = socketDisplay
)

const x11SocketDir = "/tmp/.X11-unix"

// ResolveDisplay picks the display to connect to when the process may have
// been started without a GUI environment (from a hotkey daemon, say).
// Priority: configured value, $DISPLAY, the user's logind session, the
// lowest-numbered X socket. A resolved X authority file is exported as
// XAUTHORITY so the connection handshake finds it.
func ResolveDisplay(configured, xauthority string) (string, error) {
	display := strings.TrimSpace(configured)
	if display == "" {
		display = strings.TrimSpace(getenvFn("DISPLAY"))
	}

	envXAuth := strings.TrimSpace(getenvFn("XAUTHORITY"))
	xauth := strings.TrimSpace(xauthority)
	if xauth == "" {
		xauth = envXAuth
	}

	if display == "" || xauth == "" {
		sessionDisplay, sessionXAuth := sessionX11EnvFn()
		if display == "" {
			display = sessionDisplay
		}
		if xauth == "" {
			xauth = sessionXAuth
		}
	}
	if display == "" {
		display = socketDisplayFn(x11SocketDir)
	}
	if display == "" {
		return "", fmt.Errorf("%w: DISPLAY is not set; set display in config (e.g. display: \":0\") or export DISPLAY", ErrConnection)
	}

	if xauth == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				xauth = candidate
			}
		}
	}
	if xauth != "" && xauth != envXAuth {
		if err := setenvFn("XAUTHORITY", xauth); err != nil {
			return "", fmt.Errorf("failed to export XAUTHORITY: %w", err)
		}
	}
	return display, nil
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sessionX11Env returns DISPLAY and XAUTHORITY of the first logind session
// of the calling user that has an X display. The session leader's
// environment takes precedence over logind's Display property, which is
// empty for Xwayland sessions.
func sessionX11Env() (display, xauthority string) {
	out, err := runCommandOutputFn("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	uid := strconv.Itoa(os.Getuid())

	for _, line := range strings.Split(out, "\n") {
		// SESSION UID USER SEAT TTY
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != uid {
			continue
		}
		props, err := runCommandOutputFn("loginctl", "show-session", fields[0], "-p", "Display", "-p", "Leader")
		if err != nil {
			continue
		}
		session := parseKeyValues(props, "\n")

		var env map[string]string
		if leader := session["Leader"]; leader != "" && leader != "0" {
			if data, err := readFileFn(filepath.Join("/proc", leader, "environ")); err == nil {
				env = parseKeyValues(string(data), "\x00")
			}
		}
		display = env["DISPLAY"]
		if display == "" {
			display = session["Display"]
		}
		if display == "" {
			continue
		}
		return display, env["XAUTHORITY"]
	}
	return "", ""
}

// parseKeyValues splits sep-separated KEY=VALUE records. Values are trimmed.
func parseKeyValues(data, sep string) map[string]string {
	kv := make(map[string]string)
	for _, rec := range strings.Split(data, sep) {
		k, v, ok := strings.Cut(rec, "=")
		if !ok || k == "" {
			continue
		}
		kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return kv
}

// socketDisplay returns ":N" for the lowest-numbered XN socket in dir.
// Higher numbers are usually nested or virtual servers.
func socketDisplay(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}
	lowest := -1
	for _, entry := range entries {
		num, ok := strings.CutPrefix(entry.Name(), "X")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(num); err == nil && (lowest < 0 || n < lowest) {
			lowest = n
		}
	}
	if lowest < 0 {
		return ""
	}
	return ":" + strconv.Itoa(lowest)
}
