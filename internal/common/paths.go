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

package common

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ConfigFileName holds the persisted logical EOF of a huge file.
	ConfigFileName = "config"

	// SubfilePrefix is the fixed name prefix of every sub-file.
	SubfilePrefix = "hugefile."

	lockSuffix = ".lock"
)

// NormalizePath cleans a logical huge file path. The result is used as a
// directory name, so a trailing separator is dropped.
func NormalizePath(path string) string {
	path = filepath.Clean(path)
	if len(path) > 1 {
		path = strings.TrimSuffix(path, string(filepath.Separator))
	}
	return path
}

// SplitPath splits a logical path into its directory and base name
func SplitPath(path string) (dir, base string) {
	dir = NormalizePath(path)
	return dir, filepath.Base(dir)
}

// SubfileName returns the file name of sub-file index, e.g. "hugefile.007"
func SubfileName(index int) string {
	return fmt.Sprintf("%s%03d", SubfilePrefix, index)
}

// SubfilePath returns the path of sub-file index under dir
func SubfilePath(dir string, index int) string {
	return filepath.Join(dir, SubfileName(index))
}

// ConfigPath returns the path of the config file under dir
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// LockPath returns the advisory lock file used by tools operating on dir.
// It sits next to the directory so it never shows up as a stray entry.
func LockPath(dir string) string {
	return NormalizePath(dir) + lockSuffix
}

// ParseSubfileName reports the index encoded in a sub-file name.
// Names that do not follow the hugefile.NNN pattern return ok=false.
func ParseSubfileName(name string) (index int, ok bool) {
	rest, found := strings.CutPrefix(name, SubfilePrefix)
	if !found || len(rest) != 3 {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
