package hugefile

import (
	"io"
	"testing"

	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEOF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"\n", 0, false},
		{"0\n", 0, false},
		{"42\n", 42, false},
		{"  9223372036854775807 \n", 9223372036854775807, false},
		{"-1\n", 0, true},
		{"4x2\n", 0, true},
		{"99999999999999999999\n", 0, true},
	}

	for _, tt := range tests {
		got, err := parseEOF([]byte(tt.input))
		if tt.wantErr {
			assert.Error(t, err, "parseEOF(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "parseEOF(%q)", tt.input)
		assert.Equal(t, tt.want, got, "parseEOF(%q)", tt.input)
	}
}

func TestFormatEOF(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0", string(formatEOF(0)))
	assert.Equal(t, "4294967296", string(formatEOF(1<<32)))
}

func TestPersistence(t *testing.T) {
	t.Parallel()
	r, fs := testRegistry(t, Options{})

	h, err := r.Open("persist", "wb+")
	require.NoError(t, err)
	data := pattern(45, 4)
	writeAll(t, r, h, data)
	require.NoError(t, r.Close(h))

	raw, err := billyutil.ReadFile(fs, "persist/config")
	require.NoError(t, err)
	assert.Equal(t, "45\n", string(raw))

	h, err = r.Open("persist", "rb")
	require.NoError(t, err)
	eof, err := r.EOF(h)
	require.NoError(t, err)
	assert.Equal(t, int64(45), eof)

	require.NoError(t, r.Seek(h, 0, io.SeekEnd))
	pos, _ := r.Tell(h)
	assert.Equal(t, int64(45), pos)

	require.NoError(t, r.Rewind(h))
	assert.Equal(t, data, readN(t, r, h, 45))
	require.NoError(t, r.Close(h))

	// extend in a second session
	h, err = r.Open("persist", "rb+")
	require.NoError(t, err)
	require.NoError(t, r.Seek(h, 0, io.SeekEnd))
	writeAll(t, r, h, []byte("tail"))
	require.NoError(t, r.Close(h))

	raw, err = billyutil.ReadFile(fs, "persist/config")
	require.NoError(t, err)
	assert.Equal(t, "49\n", string(raw))
}

func TestClose_KeepsLargerEOFOnDisk(t *testing.T) {
	t.Parallel()
	r, fs := testRegistry(t, Options{})

	h, err := r.Open("race", "wb+")
	require.NoError(t, err)
	writeAll(t, r, h, []byte("0123456789"))

	// another writer advanced the EOF while h was open
	require.NoError(t, billyutil.WriteFile(fs, "race/config", []byte("100\n"), 0644))
	require.NoError(t, r.Close(h))

	raw, err := billyutil.ReadFile(fs, "race/config")
	require.NoError(t, err)
	assert.Equal(t, "100\n", string(raw))
}

func TestClose_OverwritesSmallerEOFOnDisk(t *testing.T) {
	t.Parallel()
	r, fs := testRegistry(t, Options{})

	h, err := r.Open("race", "wb+")
	require.NoError(t, err)
	writeAll(t, r, h, []byte("0123456789"))

	require.NoError(t, billyutil.WriteFile(fs, "race/config", []byte("3\n"), 0644))
	require.NoError(t, r.Close(h))

	raw, err := billyutil.ReadFile(fs, "race/config")
	require.NoError(t, err)
	assert.Equal(t, "10\n", string(raw))
}

func TestClose_ReadOnlyLeavesConfig(t *testing.T) {
	t.Parallel()
	r, fs := testRegistry(t, Options{})

	h, err := r.Open("ro", "wb+")
	require.NoError(t, err)
	writeAll(t, r, h, []byte("abc"))
	require.NoError(t, r.Close(h))

	h, err = r.Open("ro", "rb")
	require.NoError(t, err)
	require.NoError(t, billyutil.WriteFile(fs, "ro/config", []byte("2\n"), 0644))
	require.NoError(t, r.Close(h))

	raw, err := billyutil.ReadFile(fs, "ro/config")
	require.NoError(t, err)
	assert.Equal(t, "2\n", string(raw))
}
