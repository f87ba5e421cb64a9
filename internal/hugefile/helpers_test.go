package hugefile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// testSubfileSize keeps boundary cases small enough to reason about byte by byte
const testSubfileSize = 16

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testRegistry creates an in-memory registry with 16-byte sub-files
func testRegistry(t *testing.T, opts Options) (*Registry, billy.Filesystem) {
	t.Helper()
	return testRegistryOn(t, memfs.New(), opts)
}

// testOSRegistry creates a registry rooted in a temporary directory
func testOSRegistry(t *testing.T, opts Options) (*Registry, string) {
	t.Helper()
	root := t.TempDir()
	r, _ := testRegistryOn(t, osfs.New(root, osfs.WithBoundOS()), opts)
	return r, root
}

func testRegistryOn(t *testing.T, fs billy.Filesystem, opts Options) (*Registry, billy.Filesystem) {
	t.Helper()
	if opts.MaxSubfileSize == 0 {
		opts.MaxSubfileSize = testSubfileSize
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	r, err := NewRegistry(fs, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.CloseAll() })
	return r, fs
}

// pattern returns n bytes that differ at every position modulo 251
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((i + int(seed)) % 251)
	}
	return b
}

func writeAll(t *testing.T, r *Registry, h Handle, p []byte) {
	t.Helper()
	n, err := r.Write(p, 1, len(p), h)
	require.NoError(t, err)
	require.Equal(t, len(p), n)
}

func readN(t *testing.T, r *Registry, h Handle, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	got, err := r.Read(buf, 1, n, h)
	require.NoError(t, err)
	require.Equal(t, n, got)
	return buf
}

func fileSize(t *testing.T, fs billy.Filesystem, name string) int64 {
	t.Helper()
	fi, err := fs.Stat(name)
	require.NoError(t, err)
	return fi.Size()
}

// countingFS counts physical seeks issued on files it opened
type countingFS struct {
	billy.Filesystem
	seeks *int
}

func (c countingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := c.Filesystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, seeks: c.seeks}, nil
}

type countingFile struct {
	billy.File
	seeks *int
}

func (f *countingFile) Seek(offset int64, whence int) (int64, error) {
	*f.seeks++
	return f.File.Seek(offset, whence)
}

var errInjected = errors.New("injected failure")

// faultFS fails OpenFile for one base name and Close or Truncate on the
// files it opened for others. When open is set it counts files per base name
// that are not closed yet.
type faultFS struct {
	billy.Filesystem
	failOpen     string
	failClose    string
	failTruncate string
	open         map[string]int
}

func (f faultFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	base := filepath.Base(name)
	if base == f.failOpen {
		return nil, errInjected
	}
	file, err := f.Filesystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if f.open != nil {
		f.open[base]++
	}
	return &faultFile{File: file, fs: f, base: base}, nil
}

type faultFile struct {
	billy.File
	fs   faultFS
	base string
}

func (f *faultFile) Close() error {
	err := f.File.Close()
	if f.fs.open != nil {
		f.fs.open[f.base]--
	}
	if f.base == f.fs.failClose {
		return errInjected
	}
	return err
}

func (f *faultFile) Truncate(size int64) error {
	if f.base == f.fs.failTruncate {
		return errInjected
	}
	return f.File.Truncate(size)
}

// syncCountingFS counts Sync calls on files it opened and passes them on
type syncCountingFS struct {
	billy.Filesystem
	syncs *int
}

func (c syncCountingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := c.Filesystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &syncCountingFile{File: f, syncs: c.syncs}, nil
}

type syncCountingFile struct {
	billy.File
	syncs *int
}

func (f *syncCountingFile) Sync() error {
	*f.syncs++
	if s, ok := f.File.(syncer); ok {
		return s.Sync()
	}
	return nil
}
