package hugefile

import (
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxSubfileSize keeps every sub-file offset inside a signed 32-bit range
	DefaultMaxSubfileSize int64 = math.MaxInt32 - 65536

	// DefaultMaxSubfiles bounds a logical file to hugefile.000 .. hugefile.127
	DefaultMaxSubfiles = 128

	// DefaultMaxHandles is the handle table capacity
	DefaultMaxHandles = 256

	DefaultDirMode  os.FileMode = 0755
	DefaultFileMode os.FileMode = 0644
)

// Options configures a Registry. Zero values are replaced by ApplyDefaults.
type Options struct {
	MaxHandles     int         `yaml:"max_handles"`      // handle table capacity
	MaxSubfiles    int         `yaml:"max_subfiles"`     // sub-files per logical file
	MaxSubfileSize int64       `yaml:"max_subfile_size"` // bytes per sub-file
	DirMode        os.FileMode `yaml:"dir_mode"`
	FileMode       os.FileMode `yaml:"file_mode"`

	Logger logrus.FieldLogger `yaml:"-"`
}

// ApplyDefaults fills zero-value fields with their defaults.
func (o *Options) ApplyDefaults() {
	if o.MaxHandles <= 0 {
		o.MaxHandles = DefaultMaxHandles
	}
	if o.MaxSubfiles <= 0 {
		o.MaxSubfiles = DefaultMaxSubfiles
	}
	if o.MaxSubfileSize <= 0 {
		o.MaxSubfileSize = DefaultMaxSubfileSize
	}
	if o.DirMode == 0 {
		o.DirMode = DefaultDirMode
	}
	if o.FileMode == 0 {
		o.FileMode = DefaultFileMode
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Validate rejects settings that cannot describe a usable layout
func (o *Options) Validate() error {
	if o.MaxSubfiles > 1000 {
		return fmt.Errorf("%w: max_subfiles %d does not fit the hugefile.NNN pattern", ErrInvalidArgument, o.MaxSubfiles)
	}
	if o.MaxSubfileSize > math.MaxInt64/int64(max(o.MaxSubfiles, 1)) {
		return fmt.Errorf("%w: max_subfile_size %d overflows the logical address space", ErrInvalidArgument, o.MaxSubfileSize)
	}
	return nil
}

// MaxLogicalSize is the largest logical EOF the layout can address
func (o *Options) MaxLogicalSize() int64 {
	return o.MaxSubfileSize * int64(o.MaxSubfiles)
}

// LoadOptions reads Options from a YAML file and applies defaults.
// A missing file yields the defaults.
func LoadOptions(path string) (Options, error) {
	var opts Options
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return opts, fmt.Errorf("failed to read settings: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
