// Copyright 2024 fakefs Authors
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

// Package fakefserr maps the kind-level sentinel errors in
// internal/common onto the syscall.Errno constants the emulator's
// errno-mapping layer expects at the boundary.
package fakefserr

import (
	"errors"
	"syscall"

	"fakefs/internal/common"
)

// syscall error codes surfaced by this core. The guest-side errno
// mapping (out of scope) forwards these verbatim.
var (
	ENOENT    = syscall.ENOENT
	EEXIST    = syscall.EEXIST
	ENOTDIR   = syscall.ENOTDIR
	EISDIR    = syscall.EISDIR
	EINVAL    = syscall.EINVAL
	ENOTSUP   = syscall.ENOTSUP
	ENOTEMPTY = syscall.ENOTEMPTY
	EIO       = syscall.EIO
	EROFS     = syscall.EROFS
)

// Map translates a common sentinel error (or a host-surfaced
// syscall.Errno already propagated from realfs) into the errno this
// core should report. Errors it does not recognize pass through
// unchanged — they are assumed to already be host errno values.
func Map(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return ENOENT
	case errors.Is(err, common.ErrExists):
		return EEXIST
	case errors.Is(err, common.ErrNotDir):
		return ENOTDIR
	case errors.Is(err, common.ErrIsDir):
		return EISDIR
	case errors.Is(err, common.ErrNotEmpty):
		return ENOTEMPTY
	case errors.Is(err, common.ErrInvalidPath), errors.Is(err, common.ErrInvalidType), errors.Is(err, common.ErrInvalidMount):
		return EINVAL
	case errors.Is(err, common.ErrNotSupported):
		return ENOTSUP
	case errors.Is(err, common.ErrReadOnly):
		return EROFS
	case errors.Is(err, common.ErrIO):
		return EIO
	default:
		return err
	}
}

// Fatal wraps an error that indicates the shadow metadata store is
// corrupt or an invariant has been violated. Nothing downstream of
// MetaStore should attempt to recover from it — the operation layer
// (internal/fakefs) panics with it and its recoverFatal guard ends the
// process.
type Fatal struct {
	Op  string
	Err error
}

func (f *Fatal) Error() string {
	return "fakefs: fatal: " + f.Op + ": " + f.Err.Error()
}

func (f *Fatal) Unwrap() error { return f.Err }

// NewFatal wraps err as a Fatal error tagged with the operation name
// that observed it. Mirrors fake.c's die() being reachable from any
// db_check_error call site.
func NewFatal(op string, err error) error {
	return &Fatal{Op: op, Err: err}
}

// IsFatal reports whether err (or something it wraps) is a Fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}
