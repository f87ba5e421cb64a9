package hugefile

import (
	"io"
)

// File adapts a handle to the io interfaces so a logical file can be used
// with io.Copy and friends
type File struct {
	r *Registry
	h Handle
}

// File returns an io adapter for h. Closing the adapter closes h.
func (r *Registry) File(h Handle) *File {
	return &File{r: r, h: h}
}

// Handle returns the underlying handle
func (f *File) Handle() Handle {
	return f.h
}

// Read reads up to len(p) bytes, stopping at the logical EOF.
// It returns io.EOF once the position reaches the logical EOF.
func (f *File) Read(p []byte) (int, error) {
	pos, err := f.r.Tell(f.h)
	if err != nil {
		return 0, err
	}
	eof, err := f.r.EOF(f.h)
	if err != nil {
		return 0, err
	}
	if pos >= eof {
		return 0, io.EOF
	}
	n := len(p)
	if rest := eof - pos; int64(n) > rest {
		n = int(rest)
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := f.r.Read(p[:n], 1, n, f.h); err != nil {
		return 0, err
	}
	return n, nil
}

// Write writes all of p at the current position
func (f *File) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := f.r.Write(p, 1, len(p), f.h); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Seek implements io.Seeker
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.r.Seek(f.h, offset, whence); err != nil {
		return 0, err
	}
	return f.r.Tell(f.h)
}

// Truncate changes the logical size
func (f *File) Truncate(size int64) error {
	return f.r.Truncate(f.h, size)
}

// Sync flushes the active sub-file
func (f *File) Sync() error {
	return f.r.Flush(f.h)
}

// Size returns the logical EOF
func (f *File) Size() (int64, error) {
	return f.r.EOF(f.h)
}

// Close closes the handle
func (f *File) Close() error {
	return f.r.Close(f.h)
}

var _ io.ReadWriteSeeker = (*File)(nil)
