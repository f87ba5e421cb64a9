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

// Package hugefile presents one random-access logical file that is stored
// as a directory of bounded-size sub-files.
//
// A logical file opened at path P is the directory P holding a config file
// with the logical EOF and the sub-files hugefile.000 .. hugefile.NNN, each
// covering MaxSubfileSize bytes of the logical address space. Handles are
// small integers issued by a Registry.
//
// A Registry may serve many handles, but the state of one handle is not
// synchronized: callers must not use the same handle from several
// goroutines at once.
package hugefile

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"

	"hugefs/internal/common"
)

// Handle identifies one open logical file within a Registry
type Handle int

// InvalidHandle is returned when Open fails
const InvalidHandle Handle = -1

// hugeFile is the mutable state of one open logical file
type hugeFile struct {
	handle Handle
	dir    string
	base   string
	mode   openMode

	fs   billy.Filesystem
	opts *Options
	log  logrus.FieldLogger

	subfiles []billy.File // nil = not opened
	known    int          // highest sub-file index ever touched, plus one

	current int  // sub-file the last transfer or seek used, -1 for none
	synced  bool // current's OS cursor sits at pos % MaxSubfileSize

	pos  int64
	eof  int64
	last direction

	config billy.File
}

// Registry is a fixed-capacity handle table
type Registry struct {
	fs   billy.Filesystem
	opts Options
	log  logrus.FieldLogger

	mu    sync.Mutex
	slots []*hugeFile
}

// NewRegistry creates a handle table whose logical files live on fs
func NewRegistry(fs billy.Filesystem, opts Options) (*Registry, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Registry{
		fs:    fs,
		opts:  opts,
		log:   opts.Logger,
		slots: make([]*hugeFile, opts.MaxHandles),
	}, nil
}

// NewOSRegistry creates a handle table on the host filesystem. Relative
// logical paths resolve against root, or the working directory if root is
// empty. Files are opened bound to the OS so Flush reaches the disk.
func NewOSRegistry(root string, opts Options) (*Registry, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	return NewRegistry(osfs.New(root, osfs.WithBoundOS()), opts)
}

// Options returns the effective options
func (r *Registry) Options() Options {
	return r.opts
}

// Open opens or creates the logical file at path. mode is fopen-style
// ("rb", "rb+", "wb+"); append modes fail with ErrAppendMode.
//
// Write modes create the directory and config file when missing but never
// discard existing content. Sub-file 0 is opened eagerly and a failure to do
// so fails the open.
func (r *Registry) Open(path, mode string) (Handle, error) {
	m, err := parseMode(mode)
	if err != nil {
		r.log.WithFields(logrus.Fields{"path": path, "mode": mode}).WithError(err).Warn("open rejected")
		return InvalidHandle, err
	}

	dir, base := common.SplitPath(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.freeSlot()
	if slot < 0 {
		return InvalidHandle, fmt.Errorf("%w: %d handles in use", ErrNoFreeHandle, len(r.slots))
	}

	hf := &hugeFile{
		handle:   Handle(slot),
		dir:      dir,
		base:     base,
		mode:     m,
		fs:       r.fs,
		opts:     &r.opts,
		log:      r.log.WithFields(logrus.Fields{"path": dir, "name": base, "handle": slot}),
		subfiles: make([]billy.File, r.opts.MaxSubfiles),
		current:  -1,
	}

	if m.writable {
		if err := r.fs.MkdirAll(dir, r.opts.DirMode); err != nil {
			return InvalidHandle, fmt.Errorf("%w: create directory %s: %w", ErrOpen, dir, err)
		}
	}

	if err := hf.openConfig(); err != nil {
		return InvalidHandle, err
	}

	eof, err := readEOF(hf.config)
	if err != nil {
		hf.config.Close()
		return InvalidHandle, fmt.Errorf("%w: %s: %w", ErrOpen, common.ConfigPath(dir), err)
	}
	hf.eof = eof

	if _, err := hf.subfile(0); err != nil {
		hf.config.Close()
		return InvalidHandle, err
	}
	hf.current = 0
	hf.synced = true

	r.slots[slot] = hf
	hf.log.WithFields(logrus.Fields{"mode": mode, "eof": eof}).Debug("opened huge file")
	return hf.handle, nil
}

// Close persists the logical EOF and releases every sub-file and the slot.
// Close failures of individual sub-files do not stop the others and are
// returned together.
func (r *Registry) Close(h Handle) error {
	hf, err := r.get(h)
	if err != nil {
		return err
	}
	err = hf.close()
	r.release(h)
	return err
}

// CloseAll closes every open handle
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	open := make([]Handle, 0, len(r.slots))
	for i, hf := range r.slots {
		if hf != nil {
			open = append(open, Handle(i))
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, h := range open {
		if err := r.Close(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InUse returns the number of open handles
func (r *Registry) InUse() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, hf := range r.slots {
		if hf != nil {
			n++
		}
	}
	return n
}

// freeSlot returns the first unused slot or -1. Caller holds r.mu.
func (r *Registry) freeSlot() int {
	for i, hf := range r.slots {
		if hf == nil {
			return i
		}
	}
	return -1
}

func (r *Registry) get(h Handle) (*hugeFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h < 0 || int(h) >= len(r.slots) || r.slots[h] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return r.slots[h], nil
}

func (r *Registry) release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[h] = nil
}

// close tears down the per-handle state
func (hf *hugeFile) close() error {
	var errs []error

	if hf.mode.writable {
		if err := hf.reconcileEOF(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := hf.config.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: close %s: %w", ErrIO, common.ConfigPath(hf.dir), err))
	}
	hf.config = nil

	for i, f := range hf.subfiles {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: close %s: %w", ErrIO, common.SubfilePath(hf.dir, i), err))
		}
		hf.subfiles[i] = nil
	}

	err := errors.Join(errs...)
	if err != nil {
		hf.log.WithError(err).WithField("failures", len(errs)).Warn("close finished with errors")
	} else {
		hf.log.WithFields(logrus.Fields{"eof": hf.eof, "subfiles": hf.known}).Debug("closed huge file")
	}

	hf.current = -1
	hf.synced = false
	hf.known = 0
	hf.pos = 0
	hf.eof = 0
	hf.last = dirNone
	return err
}
