package hugefile

import (
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"
	billyutil "github.com/go-git/go-billy/v5/util"

	"hugefs/internal/common"
)

// SubfileInfo describes one physical sub-file
type SubfileInfo struct {
	Index int
	Name  string
	Size  int64
}

// Layout is a read-only report of a logical file's on-disk state
type Layout struct {
	Path           string
	EOF            int64
	MaxSubfileSize int64
	Subfiles       []SubfileInfo // ordered by index
	Stray          []SubfileInfo // sub-files past the one owning the EOF
	Oversized      []SubfileInfo // sub-files larger than MaxSubfileSize
}

// PhysicalSize sums the sizes of all sub-files
func (l *Layout) PhysicalSize() int64 {
	var total int64
	for _, sf := range l.Subfiles {
		total += sf.Size
	}
	return total
}

// Clean reports whether the layout has no stray or oversized sub-files
func (l *Layout) Clean() bool {
	return len(l.Stray) == 0 && len(l.Oversized) == 0
}

// Inspect reads the config file and lists the sub-files of the logical file
// at path without opening a handle.
func Inspect(fs billy.Filesystem, path string, opts Options) (*Layout, error) {
	opts.ApplyDefaults()
	dir, _ := common.SplitPath(path)

	data, err := billyutil.ReadFile(fs, common.ConfigPath(dir))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, common.ConfigPath(dir), err)
	}
	eof, err := parseEOF(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, common.ConfigPath(dir), err)
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, dir, err)
	}

	layout := &Layout{Path: dir, EOF: eof, MaxSubfileSize: opts.MaxSubfileSize}
	last := locate(eof, opts.MaxSubfileSize).index
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		index, ok := common.ParseSubfileName(e.Name())
		if !ok {
			continue
		}
		sf := SubfileInfo{Index: index, Name: e.Name(), Size: e.Size()}
		layout.Subfiles = append(layout.Subfiles, sf)
	}
	sort.Slice(layout.Subfiles, func(i, j int) bool {
		return layout.Subfiles[i].Index < layout.Subfiles[j].Index
	})

	for _, sf := range layout.Subfiles {
		if sf.Index > last {
			layout.Stray = append(layout.Stray, sf)
		}
		if sf.Size > opts.MaxSubfileSize {
			layout.Oversized = append(layout.Oversized, sf)
		}
	}
	return layout, nil
}
