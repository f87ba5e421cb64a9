// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hugefile

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"hugefs/internal/common"
	"hugefs/internal/util"
)

// Read fills size*count bytes of buf from the current position.
// It returns count on success and 0 on any failure; a short read is a
// failure.
func (r *Registry) Read(buf []byte, size, count int, h Handle) (int, error) {
	return r.transfer(buf, size, count, h, dirRead)
}

// Write stores size*count bytes of buf at the current position and extends
// the logical EOF when the write ends past it. It returns count on success
// and 0 on any failure.
func (r *Registry) Write(buf []byte, size, count int, h Handle) (int, error) {
	return r.transfer(buf, size, count, h, dirWrite)
}

func (r *Registry) transfer(buf []byte, size, count int, h Handle, dir direction) (int, error) {
	hf, err := r.get(h)
	if err != nil {
		return 0, err
	}
	n, err := byteCount(size, count, len(buf))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := hf.transfer(buf[:n], dir); err != nil {
		return 0, err
	}
	return count, nil
}

// byteCount returns size*count, rejecting negative or overflowing requests
// and requests larger than the buffer
func byteCount(size, count, bufLen int) (int, error) {
	if size < 0 || count < 0 {
		return 0, fmt.Errorf("%w: size %d count %d", ErrInvalidArgument, size, count)
	}
	if size == 0 || count == 0 {
		return 0, nil
	}
	if count > math.MaxInt/size {
		return 0, fmt.Errorf("%w: size %d count %d overflows", ErrInvalidArgument, size, count)
	}
	n := size * count
	if n > bufLen {
		return 0, fmt.Errorf("%w: %d bytes requested, buffer holds %d", ErrInvalidArgument, n, bufLen)
	}
	return n, nil
}

// transfer moves p at the current position, splitting it at every sub-file
// boundary it crosses. The first failing piece aborts the call.
func (hf *hugeFile) transfer(p []byte, dir direction) error {
	switch {
	case dir == dirWrite && !hf.mode.writable:
		return fmt.Errorf("%w: %s: write on mode %q", ErrReadOnly, hf.dir, hf.mode)
	case dir == dirRead && !hf.mode.readable:
		return fmt.Errorf("%w: %s: read on write-only mode %q", ErrIO, hf.dir, hf.mode)
	}

	if needsResync(hf.last, dir) {
		hf.log.WithFields(logrus.Fields{"from": hf.last, "to": dir}).Trace("direction change, re-seeking")
		hf.synced = false
	}
	hf.last = dir

	size := hf.opts.MaxSubfileSize
	start := hf.pos
	for len(p) > 0 {
		loc := locate(hf.pos, size)
		if dir == dirRead && loc.index >= hf.opts.MaxSubfiles {
			return fmt.Errorf("%w: read at %d: past the last sub-file", ErrIO, hf.pos)
		}
		f, err := hf.cursor(loc)
		if err != nil {
			return err
		}

		piece := p
		if room := size - loc.intra; int64(len(piece)) > room {
			piece = piece[:room]
		}

		if dir == dirRead {
			_, err = io.ReadFull(f, piece)
		} else {
			var n int
			n, err = f.Write(piece)
			if err == nil && n < len(piece) {
				err = io.ErrShortWrite
			}
		}
		if err != nil {
			hf.synced = false
			return fmt.Errorf("%w: %s %d bytes at %d in %s: %w",
				ErrIO, dir, len(piece), hf.pos, common.SubfilePath(hf.dir, loc.index), err)
		}

		hf.pos += int64(len(piece))
		if dir == dirWrite && hf.pos > hf.eof {
			hf.eof = hf.pos
		}
		if loc.intra+int64(len(piece)) == size {
			// the cursor sits at the end of this sub-file, not in the next one
			hf.synced = false
		}
		p = p[len(piece):]

		if len(p) > 0 {
			hf.log.WithFields(logrus.Fields{"subfile": loc.index, "pos": hf.pos, "remaining": len(p)}).
				Trace("transfer crosses sub-file boundary")
		}
	}

	hf.log.WithFields(logrus.Fields{"op": dir, "from": start, "to": hf.pos}).Trace("transfer")
	return nil
}

// Seek moves the logical cursor. Seeks to the tracked position with
// io.SeekStart or io.SeekEnd skip the physical seek; io.SeekCurrent is
// always recomputed.
func (r *Registry) Seek(h Handle, offset int64, whence int) error {
	hf, err := r.get(h)
	if err != nil {
		return err
	}
	return hf.seek(offset, whence)
}

func (hf *hugeFile) seek(offset int64, whence int) error {
	loc, err := translate(offset, whence, hf.pos, hf.eof, hf.opts.MaxSubfileSize)
	if err != nil {
		return err
	}
	if canSkipSeek(whence, loc.abs, hf.pos) {
		hf.log.WithField("pos", hf.pos).Trace("lazy seek skipped")
		return nil
	}

	if hf.pastLastSubfile(loc) {
		hf.pos = loc.abs
		hf.current = -1
		hf.synced = false
		return nil
	}

	f, err := hf.subfile(loc.index)
	if err != nil {
		if !hf.mode.writable && util.IsNotExist(err) {
			// nothing stored there yet; a read from here fails on its own
			hf.pos = loc.abs
			hf.current = -1
			hf.synced = false
			return nil
		}
		return err
	}
	if _, err := f.Seek(loc.intra, io.SeekStart); err != nil {
		hf.synced = false
		return fmt.Errorf("%w: seek %s to %d: %w",
			ErrIO, common.SubfilePath(hf.dir, loc.index), loc.intra, err)
	}

	hf.pos = loc.abs
	hf.current = loc.index
	hf.synced = true
	return nil
}

// Tell returns the logical position without any I/O
func (r *Registry) Tell(h Handle) (int64, error) {
	hf, err := r.get(h)
	if err != nil {
		return -1, err
	}
	return hf.pos, nil
}

// EOF returns the logical end of file of h
func (r *Registry) EOF(h Handle) (int64, error) {
	hf, err := r.get(h)
	if err != nil {
		return -1, err
	}
	return hf.eof, nil
}

// Rewind seeks to the start of the logical file
func (r *Registry) Rewind(h Handle) error {
	return r.Seek(h, 0, io.SeekStart)
}

// Flush commits the active sub-file to stable storage with an fsync, so
// every call pays for one. Other sub-files and the config file are left
// alone.
func (r *Registry) Flush(h Handle) error {
	hf, err := r.get(h)
	if err != nil {
		return err
	}
	if hf.current < 0 {
		return nil
	}
	f := hf.subfiles[hf.current]
	if f == nil {
		return nil
	}
	if s, ok := f.(syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("%w: flush %s: %w", ErrIO, common.SubfilePath(hf.dir, hf.current), err)
		}
	}
	return nil
}
