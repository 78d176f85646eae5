package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/1broseidon/coomer/internal/config"
	"github.com/1broseidon/coomer/internal/gpu"
	"github.com/1broseidon/coomer/internal/overlay"
	"github.com/1broseidon/coomer/internal/x11"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		os.Exit(runOverlay(os.Args[1:]))
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runOverlay(os.Args[2:]))
	case "snapshot":
		os.Exit(runSnapshot(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: coomer [command] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Show the overlay (default)")
	fmt.Fprintln(w, "  snapshot            Capture the screen to a PNG file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Overlay keys: q or Escape quits, f toggles the flashlight.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'coomer <command> --help' for command-specific options.")
}

// loadConfig reads path, or the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func newGraphics(opts overlay.GraphicsOptions) (overlay.Graphics, error) {
	ctx, err := gpu.New(gpu.Options{
		Windowed:     opts.Windowed,
		Width:        opts.Width,
		Height:       opts.Height,
		Title:        opts.Title,
		DepthBits:    opts.DepthBits,
		DoubleBuffer: opts.DoubleBuffer,
	})
	if err != nil {
		return nil, err
	}
	return ctx, nil
}

func runOverlay(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: coomer [run] [--config PATH] [--windowed] [--display NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Freeze the screen and show it full-screen with a flashlight effect.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	path := fs.String("config", "", "Config file path (default: ~/.config/coomer/config.yaml)")
	windowed := fs.Bool("windowed", false, "Use a decorated, WM-managed window")
	display := fs.String("display", "", "X display (default: $DISPLAY)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "windowed":
			cfg.Windowed = *windowed
		case "display":
			cfg.Display = *display
		}
	})

	logger := newLogger(cfg.SlogLevel())

	cfg.Display, err = x11.ResolveDisplay(cfg.Display, cfg.XAuthority)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := overlay.New(overlay.OptionsFromConfig(cfg), overlay.Backend{
		OpenSession: overlay.OpenX11,
		NewGraphics: newGraphics,
	}, logger)

	if err := app.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	return 0
}
