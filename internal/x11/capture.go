package x11

import (
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
)

// ErrReleased is returned for any use of a released pixel buffer.
var ErrReleased = errors.New("pixel buffer already released")

const allPlanes = 0xffffffff

// Capture strategies.
const (
	CapturePlain = "plain"
	CaptureShm   = "shm"
	CaptureAuto  = "auto"
)

// CaptureError reports a failed screenshot copy.
type CaptureError struct {
	Region image.Rectangle
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screenshot of %v failed: %v", e.Region, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// PixelBuffer is a caller-owned screenshot: width*height samples of 32-bit
// BGRX in rows of Stride bytes. It must be released exactly once.
type PixelBuffer struct {
	width    int
	height   int
	stride   int
	pix      []byte
	release  func() error
	released bool
}

// NewPixelBuffer wraps pix; release, if non-nil, runs once on Release.
func NewPixelBuffer(width, height, stride int, pix []byte, release func() error) *PixelBuffer {
	return &PixelBuffer{
		width:   width,
		height:  height,
		stride:  stride,
		pix:     pix,
		release: release,
	}
}

func (b *PixelBuffer) Width() int  { return b.width }
func (b *PixelBuffer) Height() int { return b.height }
func (b *PixelBuffer) Stride() int { return b.stride }

// Len returns the number of pixel samples.
func (b *PixelBuffer) Len() int { return b.width * b.height }

// Pix returns the raw BGRX bytes. The slice is only valid until Release.
func (b *PixelBuffer) Pix() ([]byte, error) {
	if b.released {
		return nil, ErrReleased
	}
	return b.pix, nil
}

// RGBA copies the buffer into a new opaque image.
func (b *PixelBuffer) RGBA() (*image.RGBA, error) {
	if b.released {
		return nil, ErrReleased
	}

	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		src := b.pix[y*b.stride : y*b.stride+b.width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+b.width*4]
		for x := 0; x < len(src); x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = 0xff
		}
	}
	return img, nil
}

// Release frees the buffer. A second call returns ErrReleased.
func (b *PixelBuffer) Release() error {
	if b.released {
		return ErrReleased
	}
	b.released = true
	b.pix = nil
	if b.release != nil {
		return b.release()
	}
	return nil
}

// Capturer copies screen contents into a PixelBuffer.
type Capturer interface {
	Capture(region image.Rectangle) (*PixelBuffer, error)
	Close() error
}

// Capture snapshots region of the screen; an empty region means the whole
// screen. The caller owns the returned buffer.
func (s *Session) Capture(region image.Rectangle) (*PixelBuffer, error) {
	r, err := normalizeRegion(region, s.Bounds())
	if err != nil {
		return nil, &CaptureError{Region: region, Err: err}
	}
	return s.capturer.Capture(r)
}

// UseCaptureStrategy selects how captures are performed and returns the
// strategy in effect. "auto" prefers shared memory and falls back to plain.
func (s *Session) UseCaptureStrategy(strategy string) (string, error) {
	switch strategy {
	case "", CapturePlain:
		return s.swapCapturer(newPlainCapturer(s), CapturePlain)
	case CaptureShm:
		c, err := newShmCapturer(s)
		if err != nil {
			return CapturePlain, fmt.Errorf("shared memory capture unavailable: %w", err)
		}
		return s.swapCapturer(c, CaptureShm)
	case CaptureAuto:
		if c, err := newShmCapturer(s); err == nil {
			return s.swapCapturer(c, CaptureShm)
		}
		return s.swapCapturer(newPlainCapturer(s), CapturePlain)
	default:
		return CapturePlain, fmt.Errorf("unknown capture strategy %q", strategy)
	}
}

func (s *Session) swapCapturer(c Capturer, name string) (string, error) {
	if s.capturer != nil {
		if err := s.capturer.Close(); err != nil {
			return name, err
		}
	}
	s.capturer = c
	return name, nil
}

func normalizeRegion(region, bounds image.Rectangle) (image.Rectangle, error) {
	if region.Empty() {
		return bounds, nil
	}
	r := region.Intersect(bounds)
	if r.Empty() {
		return r, fmt.Errorf("region %v lies outside screen %v", region, bounds)
	}
	return r, nil
}

func checkImageDepth(depth byte) error {
	if depth != 24 && depth != 32 {
		return fmt.Errorf("unsupported image depth %d", depth)
	}
	return nil
}

// plainCapturer performs an uncompressed GetImage round trip.
type plainCapturer struct {
	s *Session
}

func newPlainCapturer(s *Session) *plainCapturer {
	return &plainCapturer{s: s}
}

func (c *plainCapturer) Capture(r image.Rectangle) (*PixelBuffer, error) {
	w, h := r.Dx(), r.Dy()
	reply, err := xproto.GetImage(
		c.s.XUtil.Conn(),
		xproto.ImageFormatZPixmap,
		xproto.Drawable(c.s.Root),
		int16(r.Min.X), int16(r.Min.Y),
		uint16(w), uint16(h),
		allPlanes,
	).Reply()
	if err != nil {
		return nil, &CaptureError{Region: r, Err: err}
	}
	if err := checkImageDepth(reply.Depth); err != nil {
		return nil, &CaptureError{Region: r, Err: err}
	}
	if len(reply.Data) < w*h*4 {
		return nil, &CaptureError{Region: r, Err: fmt.Errorf("short image: %d bytes for %dx%d", len(reply.Data), w, h)}
	}
	return NewPixelBuffer(w, h, w*4, reply.Data, nil), nil
}

func (c *plainCapturer) Close() error { return nil }
