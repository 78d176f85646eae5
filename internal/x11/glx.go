package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/glx"
)

// Version is a GLX protocol version.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// UnsupportedVersionError reports a server below the required GLX floor, a
// misconfigured floor, or a server without the GLX extension.
type UnsupportedVersionError struct {
	Have Version
	Want Version
	Err  error
}

func (e *UnsupportedVersionError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("GLX unavailable (requires GLX >= %s): %v", e.Want, e.Err)
	case e.Want.Major < 1:
		return fmt.Sprintf("invalid GLX version floor %s: major version must be >= 1", e.Want)
	default:
		return fmt.Sprintf("invalid GLX version %s. Requires GLX >= %s", e.Have, e.Want)
	}
}

func (e *UnsupportedVersionError) Unwrap() error { return e.Err }

// CheckVersion accepts have when it is at or above floor.
func CheckVersion(have, floor Version) error {
	if floor.Major < 1 || have.Less(floor) {
		return &UnsupportedVersionError{Have: have, Want: floor}
	}
	return nil
}

// NegotiateGLX queries the server's GLX version and checks it against floor.
func (s *Session) NegotiateGLX(floor Version) (Version, error) {
	if floor.Major < 1 {
		return Version{}, &UnsupportedVersionError{Want: floor}
	}

	conn := s.XUtil.Conn()
	if err := glx.Init(conn); err != nil {
		return Version{}, &UnsupportedVersionError{Want: floor, Err: err}
	}

	reply, err := glx.QueryVersion(conn, uint32(floor.Major), uint32(floor.Minor)).Reply()
	if err != nil {
		return Version{}, &UnsupportedVersionError{Want: floor, Err: err}
	}

	have := Version{Major: int(reply.MajorVersion), Minor: int(reply.MinorVersion)}
	return have, CheckVersion(have, floor)
}
