package hugefile

import (
	"fmt"
	"io"
)

// direction is the kind of the last transfer on a handle
type direction int

const (
	dirNone direction = iota
	dirRead
	dirWrite
)

func (d direction) String() string {
	switch d {
	case dirRead:
		return "read"
	case dirWrite:
		return "write"
	default:
		return "none"
	}
}

// location is a logical position split into its owning sub-file and the
// offset inside that sub-file
type location struct {
	abs   int64
	index int
	intra int64
}

// locate splits an absolute logical position. subfileSize must be positive.
func locate(abs, subfileSize int64) location {
	return location{
		abs:   abs,
		index: int(abs / subfileSize),
		intra: abs % subfileSize,
	}
}

// translate resolves (offset, whence) against the current position and the
// logical EOF. It performs no I/O.
func translate(offset int64, whence int, pos, eof, subfileSize int64) (location, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = pos
	case io.SeekEnd:
		base = eof
	default:
		return location{}, fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence)
	}

	abs := base + offset
	if (offset > 0 && abs < base) || abs < 0 {
		return location{}, fmt.Errorf("%w: %d from whence %d", ErrInvalidOffset, offset, whence)
	}
	return locate(abs, subfileSize), nil
}

// canSkipSeek reports whether a seek to target needs no physical seek.
// Relative seeks are always recomputed.
func canSkipSeek(whence int, target, pos int64) bool {
	return whence != io.SeekCurrent && target == pos
}

// needsResync reports whether switching from last to next requires the
// physical cursor to be re-established before transferring
func needsResync(last, next direction) bool {
	return last != dirNone && last != next
}
