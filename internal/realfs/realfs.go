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

// Package realfs is the host-filesystem pass-through collaborator:
// the "realfs" side of every fakefs operation. It is deliberately a
// thin interface so internal/fakefs can be tested against a fake.
package realfs

import (
	"io"
	"os"
	"time"
)

// File is the subset of *os.File behavior fakefs needs from an open
// host file.
type File interface {
	io.ReadWriteCloser
	io.Seeker
	Name() string
	Truncate(size int64) error
}

// FS is the host-filesystem collaborator. Every method operates on
// guest-relative paths and is translated against the mount's data
// root. Implementations surface host errors as plain Go errors — the
// operation layer's fakefserr.Map only recognizes internal/common's
// sentinel kinds, and otherwise passes the error through untouched,
// matching the "host-surfaced errors: propagated verbatim" policy.
type FS interface {
	// Open opens path, creating it with perm if flags includes
	// os.O_CREATE. The emulator always calls this with permissive
	// bits (0666) for regular opens — permission enforcement lives
	// entirely in the shadow, not here.
	Open(path string, flags int, perm os.FileMode) (File, error)
	Close(f File) error

	Link(src, dst string) error
	Unlink(path string) error
	Rmdir(path string) error
	Rename(src, dst string) error
	Mkdir(path string, perm os.FileMode) error
	// Mknod creates a host placeholder for path. Block and character
	// devices cannot be represented on most host filesystems, so the
	// caller is expected to have already downgraded mode to a regular
	// file for those types; Mknod only needs to handle what the host
	// can actually store.
	Mknod(path string, perm os.FileMode) error

	Stat(path string, followLinks bool) (os.FileInfo, error)
	Readlink(path string) (string, error)
	// ReadDir lists the immediate children of path, used only by the
	// rebuild walk to discover host objects the shadow has no row for.
	ReadDir(path string) ([]os.FileInfo, error)

	Truncate(path string, size int64) error
	Utime(path string, atime, mtime time.Time) error

	// Root returns the absolute host path this FS is rooted at, for
	// diagnostics (info command, rebuild logging).
	Root() string
}
