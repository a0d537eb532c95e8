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

// Package fakefs is the exported operations layer ("OpSemantics"):
// every guest-visible primitive that deviates from a pure host
// pass-through. Every mutating method here follows the same envelope:
// begin a transaction, perform the host-FS call, roll back and
// propagate on host failure, otherwise apply the metadata mutation
// and commit.
package fakefs

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"fakefs/internal/common"
	"fakefs/internal/fakefserr"
	"fakefs/internal/metastore"
	"fakefs/internal/realfs"
)

// FS is the fakefs operations table for one mount.
type FS struct {
	store   *metastore.Store
	real    realfs.FS
	handles *handleTable
	log     *logrus.Entry
}

// New builds the operations layer over an already-mounted store and
// host collaborator. Use mount.Mount to get both of these rather than
// constructing them directly.
func New(store *metastore.Store, real realfs.FS, log *logrus.Entry) *FS {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FS{store: store, real: real, handles: newHandleTable(), log: log}
}

// recoverFatal turns a panic raised anywhere beneath an operation into
// a terminating log line, mirroring fake.c's die() being reachable
// from any db_check_error call site. Ordinary errors never reach
// this — only a genuine corrupt-store condition panics.
func (fs *FS) recoverFatal(op string) {
	if r := recover(); r != nil {
		fs.log.WithField("op", op).WithField("panic", r).Fatal("fakefs: unrecoverable store error")
	}
}

// die escalates a *fakefserr.Fatal from the store into a panic that
// recoverFatal converts into process termination. Any other error is
// returned normally.
func die(err error) error {
	if err == nil {
		return nil
	}
	if fakefserr.IsFatal(err) {
		panic(err)
	}
	return err
}

// Open implements the open(path, flags, mode) primitive.
func (fs *FS) Open(ctx context.Context, path string, flags int, mode uint32, creds Creds) (HandleID, error) {
	defer fs.recoverFatal("open")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return 0, err
	}

	f, err := fs.real.Open(path, flags, os.FileMode(0666))
	if err != nil {
		_ = tx.Rollback()
		return 0, fakefserr.Map(err)
	}

	inode, err := fs.store.PathGetInode(ctx, tx, []byte(path))
	if err = die(err); err != nil {
		_ = tx.Rollback()
		_ = f.Close()
		return 0, err
	}

	if flags&os.O_CREATE != 0 && inode == 0 {
		st := metastore.Ishstat{Mode: mode | metastore.ModeFile, Uid: creds.Uid, Gid: creds.Gid}
		inode, err = fs.store.PathCreate(ctx, tx, []byte(path), st)
		if err = die(err); err != nil {
			_ = tx.Rollback()
			_ = f.Close()
			return 0, err
		}
	}

	if err := die(tx.Commit()); err != nil {
		_ = f.Close()
		return 0, err
	}

	if inode == 0 {
		// Metadata for this file is missing: the host object exists
		// but the shadow has no record of it, so it does not exist
		// from the guest's point of view.
		_ = f.Close()
		return 0, fakefserr.ENOENT
	}

	h := &Handle{Ino: inode, Path: path, file: f}
	return fs.handles.allocate(h), nil
}

// Close releases a handle and closes the underlying host file. This
// is a pure pass-through delegate — there is no metadata side.
func (fs *FS) Close(h HandleID) error {
	handle, ok := fs.handles.get(h)
	if !ok {
		return common.ErrInvalidPath
	}
	fs.handles.release(h)
	if handle.file == nil {
		return nil
	}
	return fs.real.Close(handle.file)
}

// Link implements link(src, dst).
func (fs *FS) Link(ctx context.Context, src, dst string) error {
	defer fs.recoverFatal("link")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fs.real.Link(src, dst); err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}
	if err := die(fs.store.PathLink(ctx, tx, []byte(src), []byte(dst))); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Unlink implements unlink(path).
func (fs *FS) Unlink(ctx context.Context, path string) error {
	defer fs.recoverFatal("unlink")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fs.real.Unlink(path); err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}
	if err := die(fs.store.PathUnlink(ctx, tx, []byte(path))); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Rmdir implements rmdir(path). The metadata side is identical to
// unlink — a directory's paths row is removed the same way a file's
// is, and its stats row is left for the orphan sweep.
func (fs *FS) Rmdir(ctx context.Context, path string) error {
	defer fs.recoverFatal("rmdir")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fs.real.Rmdir(path); err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}
	if err := die(fs.store.PathUnlink(ctx, tx, []byte(path))); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Rename implements rename(src, dst).
func (fs *FS) Rename(ctx context.Context, src, dst string) error {
	defer fs.recoverFatal("rename")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fs.real.Rename(src, dst); err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}
	if err := die(fs.store.PathRename(ctx, tx, []byte(src), []byte(dst))); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Symlink implements symlink(target, link): a host regular file is
// created at link holding target's bytes, then the shadow is told it
// is really a symlink.
func (fs *FS) Symlink(ctx context.Context, target, link string, creds Creds) error {
	defer fs.recoverFatal("symlink")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}

	f, err := fs.real.Open(link, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}
	if _, werr := f.Write([]byte(target)); werr != nil {
		_ = f.Close()
		_ = fs.real.Unlink(link)
		_ = tx.Rollback()
		return fakefserr.Map(werr)
	}
	if cerr := f.Close(); cerr != nil {
		_ = fs.real.Unlink(link)
		_ = tx.Rollback()
		return fakefserr.Map(cerr)
	}

	st := metastore.Ishstat{Mode: metastore.ModeSymlink | 0777, Uid: creds.Uid, Gid: creds.Gid}
	_, err = fs.store.PathCreate(ctx, tx, []byte(link), st)
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Mknod implements mknod(path, mode, dev). Block/char devices are
// downgraded to a regular file on the host side — most hosts this
// core runs on cannot store a real special file — while the shadow
// still records the guest-requested type and rdev faithfully.
func (fs *FS) Mknod(ctx context.Context, path string, mode uint32, dev uint64, creds Creds) error {
	defer fs.recoverFatal("mknod")

	isDevice := mode&metastore.ModeTypeMask == metastore.ModeBlock || mode&metastore.ModeTypeMask == metastore.ModeChar
	realMode := os.FileMode(0666)

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	if isDevice {
		if err := fs.real.Mknod(path, realMode); err != nil {
			_ = tx.Rollback()
			return fakefserr.Map(err)
		}
	} else if err := fs.real.Mknod(path, realMode|os.FileMode(mode&metastore.ModeTypeMask)); err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}

	st := metastore.Ishstat{Mode: mode, Uid: creds.Uid, Gid: creds.Gid}
	if isDevice {
		st.Rdev = uint32(dev)
	}
	_, err = fs.store.PathCreate(ctx, tx, []byte(path), st)
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Mkdir implements mkdir(path, mode).
func (fs *FS) Mkdir(ctx context.Context, path string, mode uint32, creds Creds) error {
	defer fs.recoverFatal("mkdir")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fs.real.Mkdir(path, 0777); err != nil {
		_ = tx.Rollback()
		return fakefserr.Map(err)
	}
	st := metastore.Ishstat{Mode: mode | metastore.ModeDir, Uid: creds.Uid, Gid: creds.Gid}
	_, err = fs.store.PathCreate(ctx, tx, []byte(path), st)
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Stat implements stat(path, follow): the shadow is authoritative for
// existence and type — a host-side lookup is never trusted on its
// own.
func (fs *FS) Stat(ctx context.Context, path string, followLinks bool) (Stat, error) {
	defer fs.recoverFatal("stat")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return Stat{}, err
	}
	inode, ishstat, ok, err := fs.store.PathReadStat(ctx, tx, []byte(path))
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return Stat{}, err
	}
	if !ok {
		_ = tx.Rollback()
		return Stat{}, fakefserr.ENOENT
	}

	hostInfo, err := fs.real.Stat(path, followLinks)
	if err != nil {
		_ = tx.Rollback()
		return Stat{}, fakefserr.Map(err)
	}
	if err := die(tx.Commit()); err != nil {
		return Stat{}, err
	}

	return mergeStat(inode, ishstat, hostInfo), nil
}

// Fstat implements fstat(fd).
func (fs *FS) Fstat(ctx context.Context, h HandleID) (Stat, error) {
	defer fs.recoverFatal("fstat")

	handle, ok := fs.handles.get(h)
	if !ok {
		return Stat{}, common.ErrInvalidPath
	}

	var hostInfo os.FileInfo
	if handle.file != nil {
		info, err := statFile(handle.file)
		if err != nil {
			return Stat{}, fakefserr.Map(err)
		}
		hostInfo = info
	}

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return Stat{}, err
	}
	ishstat, err := fs.store.InodeReadStat(ctx, tx, handle.Ino)
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return Stat{}, err
	}
	if err := die(tx.Commit()); err != nil {
		return Stat{}, err
	}

	return mergeStat(handle.Ino, ishstat, hostInfo), nil
}

// Setattr implements setattr(path, attr). A size attribute is forwarded
// entirely to the host and performs no metadata write — it is not a
// metadata operation.
func (fs *FS) Setattr(ctx context.Context, path string, attr Attr) error {
	defer fs.recoverFatal("setattr")

	if attr.Kind == AttrSize {
		return fakefserr.Map(fs.real.Truncate(path, attr.Size))
	}

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	inode, ishstat, ok, err := fs.store.PathReadStat(ctx, tx, []byte(path))
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return err
	}
	if !ok {
		_ = tx.Rollback()
		return fakefserr.ENOENT
	}
	updated := applyAttr(ishstat, attr)
	if err := die(fs.store.InodeWriteStat(ctx, tx, inode, updated)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Fsetattr implements fsetattr(fd, attr).
func (fs *FS) Fsetattr(ctx context.Context, h HandleID, attr Attr) error {
	defer fs.recoverFatal("fsetattr")

	handle, ok := fs.handles.get(h)
	if !ok {
		return common.ErrInvalidPath
	}

	if attr.Kind == AttrSize {
		if handle.file == nil {
			return fakefserr.Map(fs.real.Truncate(handle.Path, attr.Size))
		}
		return fakefserr.Map(handle.file.Truncate(attr.Size))
	}

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return err
	}
	ishstat, err := fs.store.InodeReadStat(ctx, tx, handle.Ino)
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return err
	}
	updated := applyAttr(ishstat, attr)
	if err := die(fs.store.InodeWriteStat(ctx, tx, handle.Ino, updated)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return die(tx.Commit())
}

// Readlink implements readlink(path), returning the link target.
func (fs *FS) Readlink(ctx context.Context, path string) (string, error) {
	defer fs.recoverFatal("readlink")

	tx, err := fs.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	_, ishstat, ok, err := fs.store.PathReadStat(ctx, tx, []byte(path))
	if err = die(err); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if !ok {
		_ = tx.Rollback()
		return "", fakefserr.ENOENT
	}
	if !ishstat.IsSymlink() {
		_ = tx.Rollback()
		return "", fakefserr.EINVAL
	}

	target, err := fs.real.Readlink(path)
	if errors.Is(err, fakefserr.EINVAL) {
		// The host object is not a link: it is the regular-file
		// stand-in Symlink writes, whose contents are the target.
		var f realfs.File
		if f, err = fs.real.Open(path, os.O_RDONLY, 0); err == nil {
			var data []byte
			data, err = io.ReadAll(f)
			_ = f.Close()
			target = string(data)
		}
	}
	if err != nil {
		_ = tx.Rollback()
		return "", fakefserr.Map(err)
	}
	if err := die(tx.Commit()); err != nil {
		return "", err
	}
	return target, nil
}

// Flock, Statfs, Getpath and Utime have no shadow-metadata side. Only
// Utime calls the realfs collaborator: Flock checks the handle and
// does nothing else, Statfs returns a zero StatFS, and Getpath returns
// the path the handle was opened with.

func (fs *FS) Flock(h HandleID, how int) error {
	if _, ok := fs.handles.get(h); !ok {
		return common.ErrInvalidPath
	}
	// Locking beyond serializing metadata transactions is a
	// non-goal; flock is accepted and ignored.
	return nil
}

func (fs *FS) Statfs(ctx context.Context) (StatFS, error) {
	return StatFS{}, nil
}

func (fs *FS) Getpath(h HandleID) (string, error) {
	handle, ok := fs.handles.get(h)
	if !ok {
		return "", common.ErrInvalidPath
	}
	return handle.Path, nil
}

func (fs *FS) Utime(ctx context.Context, path string, atime, mtime time.Time) error {
	return fakefserr.Map(fs.real.Utime(path, atime, mtime))
}

func applyAttr(st metastore.Ishstat, attr Attr) metastore.Ishstat {
	switch attr.Kind {
	case AttrUid:
		st.Uid = attr.Uid
	case AttrGid:
		st.Gid = attr.Gid
	case AttrMode:
		st = st.WithMode(attr.Mode)
	}
	return st
}

func statFile(f realfs.File) (os.FileInfo, error) {
	if s, ok := f.(interface{ Stat() (os.FileInfo, error) }); ok {
		return s.Stat()
	}
	return nil, common.ErrIO
}

func mergeStat(inode int64, ishstat metastore.Ishstat, host os.FileInfo) Stat {
	st := Stat{
		Inode: inode,
		Mode:  ishstat.Mode,
		Uid:   ishstat.Uid,
		Gid:   ishstat.Gid,
		Rdev:  ishstat.Rdev,
	}
	if host != nil {
		st.Size = host.Size()
		st.Mtime = host.ModTime()
	}
	return st
}
