package hugefile

import (
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"hugefs/internal/common"
	"hugefs/internal/util"
)

// openOrCreate opens name with flag. If it does not exist, it is created
// once and opened again.
func openOrCreate(fs billy.Filesystem, name string, flag int, perm os.FileMode) (billy.File, error) {
	var createErr error
	create := func() error {
		f, err := fs.OpenFile(name, flag|os.O_CREATE, perm)
		if err != nil {
			return err
		}
		return f.Close()
	}

	return util.RetryWithResult(func() (billy.File, error) {
		if createErr != nil {
			return nil, createErr
		}
		return fs.OpenFile(name, flag, perm)
	}, util.CreateThenReopenOptions(create, &createErr)...)
}

// pastLastSubfile reports whether loc is the first byte after the last
// sub-file. That is the EOF of a full file, which no sub-file owns.
func (hf *hugeFile) pastLastSubfile(loc location) bool {
	return loc.intra == 0 && loc.index == hf.opts.MaxSubfiles
}

// subfile returns the open sub-file index, opening it on first use.
// Writable handles create missing sub-files.
func (hf *hugeFile) subfile(index int) (billy.File, error) {
	if index < 0 || index >= hf.opts.MaxSubfiles {
		return nil, fmt.Errorf("%w: %s needs sub-file %d, limit is %d",
			ErrTooManySubfiles, hf.dir, index, hf.opts.MaxSubfiles)
	}
	if f := hf.subfiles[index]; f != nil {
		return f, nil
	}

	name := common.SubfilePath(hf.dir, index)
	var (
		f   billy.File
		err error
	)
	if hf.mode.writable {
		f, err = openOrCreate(hf.fs, name, hf.mode.fileFlag(), hf.opts.FileMode)
	} else {
		f, err = hf.fs.OpenFile(name, hf.mode.fileFlag(), hf.opts.FileMode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, name, err)
	}

	hf.subfiles[index] = f
	if index >= hf.known {
		hf.known = index + 1
	}
	hf.log.WithFields(logrus.Fields{"subfile": index, "known": hf.known}).Debug("opened sub-file")
	return f, nil
}

// cursor returns the sub-file owning loc with its OS cursor at loc.intra.
// The physical seek is skipped while the cursor is known to be in place.
func (hf *hugeFile) cursor(loc location) (billy.File, error) {
	f, err := hf.subfile(loc.index)
	if err != nil {
		return nil, err
	}
	if hf.synced && hf.current == loc.index {
		return f, nil
	}

	if _, err := f.Seek(loc.intra, io.SeekStart); err != nil {
		hf.synced = false
		return nil, fmt.Errorf("%w: seek %s to %d: %w",
			ErrIO, common.SubfilePath(hf.dir, loc.index), loc.intra, err)
	}
	hf.current = loc.index
	hf.synced = true
	return f, nil
}

// closeSubfile closes index if it is open and forgets the handle
func (hf *hugeFile) closeSubfile(index int) error {
	f := hf.subfiles[index]
	if f == nil {
		return nil
	}
	hf.subfiles[index] = nil
	if hf.current == index {
		hf.current = -1
		hf.synced = false
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, common.SubfilePath(hf.dir, index), err)
	}
	return nil
}
