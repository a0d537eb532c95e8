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

package realfs

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// billyFS wraps a billy.Filesystem rooted at a mount's data directory.
// Unlink, Rename, Stat, Readlink, ReadDir and Truncate go through
// billy; Open, Link, Rmdir, Mkdir, Mknod and Utime are plain os or
// syscall calls resolved against root, the way fake.c's realfs uses
// openat/mknodat against a root file descriptor. Open returns the
// *os.File itself, so fakefs can stat an open handle.
type billyFS struct {
	root string
	fs   billy.Filesystem
}

// New roots a realfs.FS at dataDir, the "data/" subdirectory of a
// fakefs mount.
func New(dataDir string) (FS, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &billyFS{root: abs, fs: osfs.New(abs)}, nil
}

func (b *billyFS) Root() string { return b.root }

func (b *billyFS) abs(path string) string {
	return filepath.Join(b.root, filepath.Clean("/"+path))
}

func (b *billyFS) Open(path string, flags int, perm os.FileMode) (File, error) {
	full := b.abs(path)
	if flags&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(full, flags, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b *billyFS) Close(f File) error { return f.Close() }

// Link creates a host hard link. billy.Filesystem has no equivalent
// method — every implementation in the pack that needs one resolves
// against the root path and calls os.Link directly.
func (b *billyFS) Link(src, dst string) error {
	return os.Link(b.abs(src), b.abs(dst))
}

func (b *billyFS) Unlink(path string) error {
	return b.fs.Remove(path)
}

func (b *billyFS) Rmdir(path string) error {
	return os.Remove(b.abs(path))
}

func (b *billyFS) Rename(src, dst string) error {
	return b.fs.Rename(src, dst)
}

func (b *billyFS) Mkdir(path string, perm os.FileMode) error {
	return os.Mkdir(b.abs(path), perm)
}

// Mknod creates the host object for path. When perm carries S_IFMT
// type bits other than a regular file's (a FIFO or socket), it calls
// mknod with that type and perm's permission bits. Otherwise it
// creates an empty regular file — the placeholder fakefs uses for
// block/character devices, which the host cannot store inside an app
// sandbox or a plain directory tree.
func (b *billyFS) Mknod(path string, perm os.FileMode) error {
	if typ := uint32(perm) & syscall.S_IFMT; typ != 0 && typ != syscall.S_IFREG {
		return syscall.Mknod(b.abs(path), typ|uint32(perm.Perm()), 0)
	}
	f, err := os.OpenFile(b.abs(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	return f.Close()
}

func (b *billyFS) Stat(path string, followLinks bool) (os.FileInfo, error) {
	if followLinks {
		return b.fs.Stat(path)
	}
	return b.fs.Lstat(path)
}

func (b *billyFS) Readlink(path string) (string, error) {
	return b.fs.Readlink(path)
}

func (b *billyFS) ReadDir(path string) ([]os.FileInfo, error) {
	return b.fs.ReadDir(path)
}

func (b *billyFS) Truncate(path string, size int64) error {
	f, err := b.fs.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}

func (b *billyFS) Utime(path string, atime, mtime time.Time) error {
	return os.Chtimes(b.abs(path), atime, mtime)
}
