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

package hugefile

import (
	"errors"
	"fmt"
)

// ErrFatal marks misuse that the embedding application should treat as
// unrecoverable. The package itself never terminates the process; callers
// decide whether to abort when IsFatal reports true.
var ErrFatal = errors.New("hugefile: unrecoverable configuration error")

var (
	ErrAppendMode      = fmt.Errorf("%w: append mode is not supported", ErrFatal)
	ErrTooManySubfiles = fmt.Errorf("%w: sub-file limit exceeded", ErrFatal)
)

var (
	ErrNoFreeHandle    = errors.New("hugefile: no free handle")
	ErrInvalidHandle   = errors.New("hugefile: invalid handle")
	ErrInvalidMode     = errors.New("hugefile: invalid open mode")
	ErrOpen            = errors.New("hugefile: open failed")
	ErrIO              = errors.New("hugefile: I/O error")
	ErrInvalidOffset   = errors.New("hugefile: invalid offset")
	ErrInvalidArgument = errors.New("hugefile: invalid argument")
	ErrReadOnly        = errors.New("hugefile: opened read-only")
)

// IsFatal reports whether err is one of the deliberately fatal misuse cases
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
