package hugefile

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"hugefs/internal/common"
	"hugefs/internal/util"
)

// Truncate sets the logical EOF to length. The owning sub-file is cut to
// the intra-file offset, the new EOF is written to the config file right
// away and every later sub-file is deleted. Sub-files already deleted are
// not restored if a later step fails.
//
// The logical position is left where it was.
func (r *Registry) Truncate(h Handle, length int64) error {
	hf, err := r.get(h)
	if err != nil {
		return err
	}
	return hf.truncate(length)
}

func (hf *hugeFile) truncate(length int64) error {
	if !hf.mode.writable {
		return fmt.Errorf("%w: %s: truncate on mode %q", ErrReadOnly, hf.dir, hf.mode)
	}
	if length < 0 {
		return fmt.Errorf("%w: truncate to %d", ErrInvalidOffset, length)
	}

	loc := locate(length, hf.opts.MaxSubfileSize)
	if hf.pastLastSubfile(loc) {
		// a full file ends with its last sub-file at full size
		loc = location{abs: length, index: loc.index - 1, intra: hf.opts.MaxSubfileSize}
	}
	if loc.index >= hf.opts.MaxSubfiles {
		return fmt.Errorf("%w: %s truncated to %d needs sub-file %d, limit is %d",
			ErrTooManySubfiles, hf.dir, length, loc.index, hf.opts.MaxSubfiles)
	}

	if err := hf.closeSubfile(loc.index); err != nil {
		return err
	}
	name := common.SubfilePath(hf.dir, loc.index)
	f, err := openOrCreate(hf.fs, name, hf.mode.fileFlag(), hf.opts.FileMode)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpen, name, err)
	}
	if err := f.Truncate(loc.intra); err != nil {
		f.Close()
		return fmt.Errorf("%w: truncate %s to %d: %w", ErrIO, name, loc.intra, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, name, err)
	}

	hf.eof = length
	if err := hf.storeEOF(); err != nil {
		return err
	}

	removed := 0
	for i := loc.index + 1; i < hf.opts.MaxSubfiles; i++ {
		if err := hf.closeSubfile(i); err != nil {
			return err
		}
		path := common.SubfilePath(hf.dir, i)
		if err := hf.fs.Remove(path); err != nil {
			if util.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("%w: remove %s: %w", ErrIO, path, err)
		}
		removed++
	}

	hf.known = loc.index + 1
	hf.synced = false
	hf.log.WithFields(logrus.Fields{"eof": length, "subfile": loc.index, "removed": removed}).Debug("truncated huge file")
	return nil
}
