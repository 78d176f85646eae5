package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/sys/unix"
)

// shmCapturer copies screen contents through a MIT-SHM segment. Each buffer
// owns its segment until released.
type shmCapturer struct {
	s *Session
}

func newShmCapturer(s *Session) (*shmCapturer, error) {
	if err := shm.Init(s.XUtil.Conn()); err != nil {
		return nil, err
	}
	if _, err := shm.QueryVersion(s.XUtil.Conn()).Reply(); err != nil {
		return nil, err
	}
	return &shmCapturer{s: s}, nil
}

func (c *shmCapturer) Capture(r image.Rectangle) (*PixelBuffer, error) {
	conn := c.s.XUtil.Conn()
	w, h := r.Dx(), r.Dy()
	size := w * h * 4

	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, &CaptureError{Region: r, Err: fmt.Errorf("shmget: %w", err)}
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, &CaptureError{Region: r, Err: fmt.Errorf("shmat: %w", err)}
	}

	fail := func(seg shm.Seg, err error) (*PixelBuffer, error) {
		if seg != 0 {
			shm.Detach(conn, seg)
		}
		unix.SysvShmDetach(data)
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, &CaptureError{Region: r, Err: err}
	}

	seg, err := shm.NewSegId(conn)
	if err != nil {
		return fail(0, err)
	}
	if err := shm.AttachChecked(conn, seg, uint32(id), false).Check(); err != nil {
		return fail(0, fmt.Errorf("server attach: %w", err))
	}

	// Both sides are attached; the kernel frees the segment after the last
	// detach.
	unix.SysvShmCtl(id, unix.IPC_RMID, nil)

	reply, err := shm.GetImage(
		conn,
		xproto.Drawable(c.s.Root),
		int16(r.Min.X), int16(r.Min.Y),
		uint16(w), uint16(h),
		allPlanes,
		xproto.ImageFormatZPixmap,
		seg,
		0,
	).Reply()
	if err != nil {
		return fail(seg, err)
	}
	if err := checkImageDepth(reply.Depth); err != nil {
		return fail(seg, err)
	}

	release := func() error {
		shm.Detach(conn, seg)
		return unix.SysvShmDetach(data)
	}
	return NewPixelBuffer(w, h, w*4, data[:size], release), nil
}

func (c *shmCapturer) Close() error { return nil }
