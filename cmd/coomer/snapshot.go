package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/1broseidon/coomer/internal/x11"
)

func runSnapshot(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: coomer snapshot [--output FILE] [--scale N] [--monitor NAME|ID] [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Capture the screen, or one monitor, to a PNG file. Use '-' for stdout.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	output := fs.String("output", "screenshot.png", "Output PNG path")
	scale := fs.Float64("scale", 1, "Scale factor applied before encoding")
	monitor := fs.String("monitor", "", "Capture only this monitor (XRandR output name or index)")
	path := fs.String("config", "", "Config file path (default: ~/.config/coomer/config.yaml)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *scale <= 0 {
		fmt.Fprintln(os.Stderr, "--scale must be > 0")
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	logger := newLogger(cfg.SlogLevel())

	display, err := x11.ResolveDisplay(cfg.Display, cfg.XAuthority)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	session, err := x11.Open(display)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	defer session.Close()

	strategy, err := session.UseCaptureStrategy(cfg.Capture.Strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}

	region := image.Rectangle{}
	if *monitor != "" {
		monitors, err := session.Monitors()
		if err != nil {
			fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
			return 1
		}
		m, ok := x11.FindMonitor(monitors, *monitor)
		if !ok {
			fmt.Fprintf(os.Stderr, "coomer: no monitor %q\n", *monitor)
			return 1
		}
		region = m.Bounds
	}

	img, err := captureRGBA(session, region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
		return 1
	}
	logger.Debug("screen captured", "strategy", strategy, "bounds", img.Bounds().String())

	out := scaleImage(img, *scale)

	var w io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "coomer: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := png.Encode(w, out); err != nil {
		fmt.Fprintf(os.Stderr, "coomer: failed to encode png: %v\n", err)
		return 1
	}
	if *output != "-" {
		logger.Info("snapshot written", "path", *output, "width", out.Bounds().Dx(), "height", out.Bounds().Dy())
	}
	return 0
}

// captureRGBA copies region into an RGBA image and releases the capture.
func captureRGBA(session *x11.Session, region image.Rectangle) (*image.RGBA, error) {
	buf, err := session.Capture(region)
	if err != nil {
		return nil, err
	}
	img, err := buf.RGBA()
	if rerr := buf.Release(); err == nil {
		err = rerr
	}
	return img, err
}

// scaleImage resamples src by factor; a factor of 1 returns src unchanged.
func scaleImage(src *image.RGBA, factor float64) image.Image {
	if factor == 1 {
		return src
	}
	b := src.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
