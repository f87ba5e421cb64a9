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

package commands

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <path> <dest>",
	Short: "Copy the logical content of a huge file into one flat file",
	Long: `Copy the bytes from offset 0 up to the logical end of file into dest.

dest is replaced atomically: readers see either the old file or the complete
new one.

Every byte up to the end of file must be stored. A hole left by truncating
upwards, or by writing past the end of file, makes the export fail and
leaves dest untouched. Fill the hole with import --offset first.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <src> <path>",
	Short: "Write a flat file into a huge file",
	Long: `Write the content of src into the huge file at path, creating it if needed.

By default the data is appended at the logical end of file. Use --offset to
overwrite from a given position instead.

Examples:
  hugefile import line.raw ./area/line.bin
  hugefile import --offset 0 line.raw ./area/line.bin`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

var truncateCmd = &cobra.Command{
	Use:   "truncate <path> <length>",
	Short: "Set the logical length of a huge file",
	Long: `Set the logical end of file to length, deleting sub-files that are no
longer needed. length accepts plain byte counts or sizes such as 3GiB.`,
	Args: cobra.ExactArgs(2),
	RunE: runTruncate,
}

var importOffset int64

func init() {
	importCmd.Flags().Int64Var(&importOffset, "offset", -1, "Logical offset to write at (default: end of file)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(truncateCmd)
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	dir, err := absPath(args[0])
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	h, err := reg.Open(dir, "rb")
	if err != nil {
		return err
	}
	f := reg.File(h)
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	size, err := f.Size()
	if err != nil {
		return err
	}
	src := &readErrRecorder{r: f}
	if err := atomic.WriteFile(args[1], src); err != nil {
		if src.err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, src.err)
		}
		return fmt.Errorf("failed to write %s: %w", args[1], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%s bytes) to %s\n", dir, humanize.Comma(size), args[1])
	return nil
}

func runImport(cmd *cobra.Command, args []string) (err error) {
	dir, err := absPath(args[1])
	if err != nil {
		return err
	}

	src, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	lock, err := lockHugeFile(dir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	h, err := reg.Open(dir, "wb+")
	if err != nil {
		return err
	}
	f := reg.File(h)
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	var start int64
	if importOffset >= 0 {
		start, err = f.Seek(importOffset, io.SeekStart)
	} else {
		start, err = f.Seek(0, io.SeekEnd)
	}
	if err != nil {
		return err
	}

	n, err := io.Copy(f, src)
	if err != nil {
		return fmt.Errorf("import failed after %d bytes: %w", n, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s bytes into %s at offset %s\n",
		humanize.Comma(n), dir, humanize.Comma(start))
	return nil
}

func runTruncate(cmd *cobra.Command, args []string) (err error) {
	dir, err := absPath(args[0])
	if err != nil {
		return err
	}
	length, err := parseLength(args[1])
	if err != nil {
		return err
	}

	lock, err := lockHugeFile(dir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	h, err := reg.Open(dir, "rb+")
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, reg.Close(h))
	}()

	if err := reg.Truncate(h, length); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Truncated %s to %s bytes\n", dir, humanize.Comma(length))
	return nil
}

// readErrRecorder keeps the first read error. atomic.WriteFile formats it
// with %v, which drops the error chain.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (e *readErrRecorder) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF && e.err == nil {
		e.err = err
	}
	return n, err
}

// parseLength accepts "1048576", "1MiB" or "2 GB"
func parseLength(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid length %q: too large", s)
	}
	return int64(n), nil
}
