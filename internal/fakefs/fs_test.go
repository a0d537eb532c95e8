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

package fakefs_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	_ "github.com/tursodatabase/go-libsql"

	"fakefs/internal/fakefs"
	"fakefs/internal/fakefserr"
	"fakefs/internal/metastore"
	"fakefs/internal/realfs"
)

func newTestFS(t *testing.T) (*fakefs.FS, string) {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "meta.db")
	sqlDB, err := sql.Open("libsql", metastore.BuildDSN(dbPath, metastore.DefaultBusyTimeout))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := metastore.ApplyPragmas(sqlDB, metastore.DefaultBusyTimeout); err != nil {
		t.Fatal(err)
	}
	if err := metastore.Migrate(sqlDB); err != nil {
		t.Fatal(err)
	}

	store := metastore.New(sqlDB, nil)
	real, err := realfs.New(dataDir)
	if err != nil {
		t.Fatal(err)
	}

	return fakefs.New(store, real, nil), dataDir
}

func TestScenario_MkdirThenStat(t *testing.T) {
	g := NewWithT(t)
	fs, _ := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 501, Gid: 20}

	g.Expect(fs.Mkdir(ctx, "/a", 0700, creds)).To(Succeed())

	st, err := fs.Stat(ctx, "/a", true)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Mode & metastore.ModeTypeMask).To(Equal(metastore.ModeDir))
	g.Expect(st.Mode &^ metastore.ModeTypeMask).To(Equal(uint32(0700)))
	g.Expect(st.Uid).To(Equal(creds.Uid))
	g.Expect(st.Gid).To(Equal(creds.Gid))
}

func TestScenario_MknodDeviceIsRegularOnHost(t *testing.T) {
	g := NewWithT(t)
	fs, dataDir := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 0, Gid: 0}

	const makedevOneThree = uint64(1)<<8 | 3
	g.Expect(fs.Mkdir(ctx, "/dev", 0755, creds)).To(Succeed())
	g.Expect(fs.Mknod(ctx, "/dev/null", metastore.ModeChar|0666, makedevOneThree, creds)).To(Succeed())

	st, err := fs.Stat(ctx, "/dev/null", true)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Mode & metastore.ModeTypeMask).To(Equal(metastore.ModeChar))
	g.Expect(st.Rdev).To(Equal(uint32(makedevOneThree)))

	hostInfo, err := os.Stat(filepath.Join(dataDir, "dev", "null"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(hostInfo.Mode().IsRegular()).To(BeTrue())
}

func TestScenario_SymlinkAndReadlink(t *testing.T) {
	g := NewWithT(t)
	fs, _ := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 1, Gid: 1}

	g.Expect(fs.Symlink(ctx, "/target", "/l", creds)).To(Succeed())

	target, err := fs.Readlink(ctx, "/l")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(target).To(Equal("/target"))

	st, err := fs.Stat(ctx, "/l", false)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Mode & metastore.ModeTypeMask).To(Equal(metastore.ModeSymlink))
}

func TestScenario_OpenCreateSetattrFstat(t *testing.T) {
	g := NewWithT(t)
	fs, _ := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 501, Gid: 20}

	h, err := fs.Open(ctx, "/x", os.O_CREATE|os.O_RDWR, 0600, creds)
	g.Expect(err).NotTo(HaveOccurred())
	defer fs.Close(h)

	g.Expect(fs.Setattr(ctx, "/x", fakefs.Attr{Kind: fakefs.AttrUid, Uid: 42})).To(Succeed())

	st, err := fs.Fstat(ctx, h)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Uid).To(Equal(uint32(42)))
}

func TestFsetattrSizeTargetsBoundFileAfterRename(t *testing.T) {
	g := NewWithT(t)
	fs, dataDir := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 501, Gid: 20}

	h, err := fs.Open(ctx, "/x", os.O_CREATE|os.O_RDWR, 0644, creds)
	g.Expect(err).NotTo(HaveOccurred())
	defer fs.Close(h)

	g.Expect(os.WriteFile(filepath.Join(dataDir, "x"), []byte("hello world"), 0644)).To(Succeed())
	g.Expect(fs.Rename(ctx, "/x", "/y")).To(Succeed())

	// The fd was captured at open time against the renamed inode, not
	// the "/x" path, so truncating through it must still land on the
	// object now living at "/y" even though that path was never
	// mentioned to Fsetattr.
	g.Expect(fs.Fsetattr(ctx, h, fakefs.Attr{Kind: fakefs.AttrSize, Size: 5})).To(Succeed())

	info, err := os.Stat(filepath.Join(dataDir, "y"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(info.Size()).To(Equal(int64(5)))

	_, err = os.Stat(filepath.Join(dataDir, "x"))
	g.Expect(os.IsNotExist(err)).To(BeTrue())
}

func TestScenario_LinkUnlinkPreservesSurvivor(t *testing.T) {
	g := NewWithT(t)
	fs, _ := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 501, Gid: 20}

	h, err := fs.Open(ctx, "/x", os.O_CREATE|os.O_RDWR, 0600, creds)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fs.Setattr(ctx, "/x", fakefs.Attr{Kind: fakefs.AttrUid, Uid: 42})).To(Succeed())
	g.Expect(fs.Close(h)).To(Succeed())

	g.Expect(fs.Link(ctx, "/x", "/y")).To(Succeed())
	g.Expect(fs.Unlink(ctx, "/x")).To(Succeed())

	st, err := fs.Stat(ctx, "/y", true)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Uid).To(Equal(uint32(42)))

	_, err = fs.Stat(ctx, "/x", true)
	g.Expect(err).To(MatchError(fakefserr.ENOENT))
}

func TestOpenCreateTwiceReturnsSameInode(t *testing.T) {
	g := NewWithT(t)
	fs, _ := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 1, Gid: 1}

	h1, err := fs.Open(ctx, "/x", os.O_CREATE|os.O_RDWR, 0644, creds)
	g.Expect(err).NotTo(HaveOccurred())
	st1, err := fs.Fstat(ctx, h1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fs.Close(h1)).To(Succeed())

	h2, err := fs.Open(ctx, "/x", os.O_CREATE|os.O_RDWR, 0777, creds)
	g.Expect(err).NotTo(HaveOccurred())
	st2, err := fs.Fstat(ctx, h2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fs.Close(h2)).To(Succeed())

	g.Expect(st2.Inode).To(Equal(st1.Inode))
	g.Expect(st2.Mode &^ metastore.ModeTypeMask).To(Equal(st1.Mode &^ metastore.ModeTypeMask))
}

func TestSetattrPreservesTypeBits(t *testing.T) {
	g := NewWithT(t)
	fs, _ := newTestFS(t)
	ctx := context.Background()
	creds := fakefs.Creds{Uid: 1, Gid: 1}

	g.Expect(fs.Mkdir(ctx, "/a", 0755, creds)).To(Succeed())
	g.Expect(fs.Setattr(ctx, "/a", fakefs.Attr{Kind: fakefs.AttrMode, Mode: 0700})).To(Succeed())

	st, err := fs.Stat(ctx, "/a", true)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Mode & metastore.ModeTypeMask).To(Equal(metastore.ModeDir))
	g.Expect(st.Mode &^ metastore.ModeTypeMask).To(Equal(uint32(0700)))
}

