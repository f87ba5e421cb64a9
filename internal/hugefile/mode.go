package hugefile

import (
	"fmt"
	"os"
	"strings"
)

// openMode is the decoded form of an fopen-style mode string
type openMode struct {
	raw      string
	readable bool
	writable bool
}

// parseMode decodes "r", "rb", "r+", "rb+", "r+b", "w", "wb", "w+", "wb+", "w+b".
// Write modes never discard existing content: the logical file is always
// opened for update and its persisted EOF is kept.
func parseMode(mode string) (openMode, error) {
	m := openMode{raw: mode}
	if strings.ContainsRune(mode, 'a') {
		return m, fmt.Errorf("%w (mode %q)", ErrAppendMode, mode)
	}
	if mode == "" {
		return m, fmt.Errorf("%w: empty mode", ErrInvalidMode)
	}

	switch mode[0] {
	case 'r':
		m.readable = true
	case 'w':
		m.writable = true
	default:
		return m, fmt.Errorf("%w %q", ErrInvalidMode, mode)
	}

	for _, c := range mode[1:] {
		switch c {
		case '+':
			m.readable = true
			m.writable = true
		case 'b', 't':
		default:
			return m, fmt.Errorf("%w %q", ErrInvalidMode, mode)
		}
	}
	return m, nil
}

// fileFlag returns the flag used to open existing sub-files and the config file
func (m openMode) fileFlag() int {
	switch {
	case m.readable && m.writable:
		return os.O_RDWR
	case m.writable:
		return os.O_WRONLY
	default:
		return os.O_RDONLY
	}
}

func (m openMode) String() string {
	return m.raw
}
