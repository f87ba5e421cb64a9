package hugefile

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(memfs.New(), Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.Len(t, r.slots, DefaultMaxHandles)
	assert.Equal(t, DefaultMaxSubfileSize, r.Options().MaxSubfileSize)
	assert.Equal(t, DefaultMaxSubfiles, r.Options().MaxSubfiles)
	assert.Equal(t, 0, r.InUse())

	_, err = NewRegistry(memfs.New(), Options{MaxSubfiles: 5000})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates directory, config and first sub-file", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})

		h, err := r.Open("area/line.bin", "wb+")
		require.NoError(t, err)
		assert.Equal(t, Handle(0), h)

		fi, err := fs.Stat("area/line.bin")
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
		assert.Equal(t, int64(0), fileSize(t, fs, "area/line.bin/hugefile.000"))
		_, err = fs.Stat("area/line.bin/config")
		assert.NoError(t, err)

		pos, err := r.Tell(h)
		require.NoError(t, err)
		assert.Equal(t, int64(0), pos)
		eof, err := r.EOF(h)
		require.NoError(t, err)
		assert.Equal(t, int64(0), eof)
	})

	t.Run("existing directory is not an error", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})
		require.NoError(t, fs.MkdirAll("data", 0755))

		h, err := r.Open("data", "rb+")
		require.NoError(t, err)
		require.NoError(t, r.Close(h))
	})

	t.Run("read-only fails without config", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})

		h, err := r.Open("missing", "rb")
		assert.ErrorIs(t, err, ErrOpen)
		assert.Equal(t, InvalidHandle, h)

		_, err = fs.Stat("missing")
		assert.Error(t, err, "read-only open must not create the directory")
		assert.Equal(t, 0, r.InUse())
	})

	t.Run("read-only fails without first sub-file", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})
		require.NoError(t, billyutil.WriteFile(fs, "broken/config", []byte("0\n"), 0644))

		h, err := r.Open("broken", "rb")
		assert.ErrorIs(t, err, ErrOpen)
		assert.Equal(t, InvalidHandle, h)
		assert.Equal(t, 0, r.InUse())
	})

	t.Run("malformed config fails", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})
		require.NoError(t, billyutil.WriteFile(fs, "bad/config", []byte("twelve\n"), 0644))

		_, err := r.Open("bad", "rb+")
		assert.ErrorIs(t, err, ErrOpen)
	})

	t.Run("append mode is fatal", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})

		h, err := r.Open("appended", "ab")
		assert.ErrorIs(t, err, ErrAppendMode)
		assert.True(t, IsFatal(err))
		assert.Equal(t, InvalidHandle, h)

		_, err = fs.Stat("appended")
		assert.Error(t, err)
	})

	t.Run("sub-file 0 failure fails the open", func(t *testing.T) {
		t.Parallel()
		r, _ := testRegistryOn(t, faultFS{Filesystem: memfs.New(), failOpen: "hugefile.000"}, Options{})

		h, err := r.Open("t", "wb+")
		assert.ErrorIs(t, err, ErrOpen)
		assert.ErrorIs(t, err, errInjected)
		assert.Equal(t, InvalidHandle, h)
		assert.Equal(t, 0, r.InUse())
	})
}

func TestOpen_HandleTable(t *testing.T) {
	t.Parallel()
	r, _ := testRegistry(t, Options{MaxHandles: 2})

	a, err := r.Open("a", "wb+")
	require.NoError(t, err)
	b, err := r.Open("b", "wb+")
	require.NoError(t, err)
	assert.Equal(t, Handle(0), a)
	assert.Equal(t, Handle(1), b)

	c, err := r.Open("c", "wb+")
	assert.ErrorIs(t, err, ErrNoFreeHandle)
	assert.False(t, IsFatal(err))
	assert.Equal(t, InvalidHandle, c)

	require.NoError(t, r.Close(a))
	c, err = r.Open("c", "wb+")
	require.NoError(t, err)
	assert.Equal(t, Handle(0), c, "first free slot is reused")
	assert.Equal(t, 2, r.InUse())
}

func TestClose(t *testing.T) {
	t.Parallel()

	t.Run("handle is invalid afterwards", func(t *testing.T) {
		t.Parallel()
		r, _ := testRegistry(t, Options{})
		h, err := r.Open("x", "wb+")
		require.NoError(t, err)
		require.NoError(t, r.Close(h))

		assert.ErrorIs(t, r.Close(h), ErrInvalidHandle)
		_, err = r.Tell(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)
		assert.ErrorIs(t, r.Seek(h, 0, 0), ErrInvalidHandle)
		_, err = r.Write([]byte("x"), 1, 1, h)
		assert.ErrorIs(t, err, ErrInvalidHandle)
		assert.ErrorIs(t, r.Truncate(h, 0), ErrInvalidHandle)
		assert.ErrorIs(t, r.Flush(h), ErrInvalidHandle)
	})

	t.Run("failures are collected", func(t *testing.T) {
		t.Parallel()
		open := map[string]int{}
		fs := faultFS{Filesystem: memfs.New(), failClose: "hugefile.001", open: open}
		r, _ := testRegistryOn(t, fs, Options{})
		h, err := r.Open("broken", "wb+")
		require.NoError(t, err)
		writeAll(t, r, h, pattern(40, 0))

		err = r.Close(h)
		assert.ErrorIs(t, err, ErrIO)
		assert.ErrorIs(t, err, errInjected)
		assert.Equal(t, 0, r.InUse())
		_, err = r.Tell(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		assert.Len(t, open, 4)
		for name, n := range open {
			assert.Zero(t, n, "%s left open", name)
		}

		raw, err := billyutil.ReadFile(fs, "broken/config")
		require.NoError(t, err)
		assert.Equal(t, "40\n", string(raw))
	})

	t.Run("unknown handles", func(t *testing.T) {
		t.Parallel()
		r, _ := testRegistry(t, Options{})
		assert.ErrorIs(t, r.Close(InvalidHandle), ErrInvalidHandle)
		assert.ErrorIs(t, r.Close(Handle(DefaultMaxHandles)), ErrInvalidHandle)
		assert.ErrorIs(t, r.Close(3), ErrInvalidHandle)
	})

	t.Run("close all", func(t *testing.T) {
		t.Parallel()
		r, fs := testRegistry(t, Options{})
		for _, p := range []string{"p1", "p2", "p3"} {
			h, err := r.Open(p, "wb+")
			require.NoError(t, err)
			writeAll(t, r, h, []byte(p))
		}
		require.NoError(t, r.CloseAll())
		assert.Equal(t, 0, r.InUse())

		data, err := billyutil.ReadFile(fs, "p2/config")
		require.NoError(t, err)
		assert.Equal(t, "2\n", string(data))
	})
}
