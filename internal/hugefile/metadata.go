package hugefile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"hugefs/internal/common"
)

// syncer is implemented by files backed by an OS descriptor
type syncer interface {
	Sync() error
}

// openConfig opens the config file. Writable handles open it for update and
// create it when missing; read-only handles require it to exist.
func (hf *hugeFile) openConfig() error {
	name := common.ConfigPath(hf.dir)
	var err error
	if hf.mode.writable {
		hf.config, err = openOrCreate(hf.fs, name, os.O_RDWR, hf.opts.FileMode)
	} else {
		hf.config, err = hf.fs.OpenFile(name, os.O_RDONLY, hf.opts.FileMode)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpen, name, err)
	}
	return nil
}

// parseEOF decodes the config file content. Empty content is a new file.
func parseEOF(data []byte) (int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, nil
	}
	eof, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed config: %w", err)
	}
	if eof < 0 {
		return 0, fmt.Errorf("malformed config: negative EOF %d", eof)
	}
	return eof, nil
}

func formatEOF(eof int64) []byte {
	return strconv.AppendInt(nil, eof, 10)
}

// readEOF reads the persisted EOF from the start of f
func readEOF(f billy.File) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}
	return parseEOF(data)
}

// writeEOF replaces the content of f with eof and fsyncs it when f is
// backed by an OS descriptor
func writeEOF(f billy.File, eof int64) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(append(formatEOF(eof), '\n')); err != nil {
		return err
	}
	if s, ok := f.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// storeEOF writes the in-memory EOF through to the config file
func (hf *hugeFile) storeEOF() error {
	if err := writeEOF(hf.config, hf.eof); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, common.ConfigPath(hf.dir), err)
	}
	return nil
}

// reconcileEOF persists the EOF at close. If the config file already holds
// a larger value, another writer advanced it and that value is kept.
// This only narrows the window for EOF regression between writers; it does
// not make concurrent writers safe.
func (hf *hugeFile) reconcileEOF() error {
	disk, err := readEOF(hf.config)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrIO, common.ConfigPath(hf.dir), err)
	}
	if disk > hf.eof {
		hf.log.WithFields(logrus.Fields{"eof": hf.eof, "disk_eof": disk}).
			Warn("config EOF advanced by another writer, keeping the larger value")
		return nil
	}
	return hf.storeEOF()
}
