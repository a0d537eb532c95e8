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

package realfs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fakefs/internal/realfs"
)

func newTestRealFS(t *testing.T) (realfs.FS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := realfs.New(dir)
	require.NoError(t, err)
	return fs, dir
}

func TestOpenCreateWritesThroughToHost(t *testing.T) {
	fs, dir := newTestRealFS(t)

	f, err := fs.Open("/x", os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(f))

	got, err := os.ReadFile(filepath.Join(dir, "x"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestLinkCreatesRealHardLink(t *testing.T) {
	fs, dir := newTestRealFS(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("content"), 0644))
	require.NoError(t, fs.Link("/a", "/b"))

	got, err := os.ReadFile(filepath.Join(dir, "b"))
	require.NoError(t, err)
	require.Equal(t, "content", string(got))

	aInfo, err := os.Stat(filepath.Join(dir, "a"))
	require.NoError(t, err)
	bInfo, err := os.Stat(filepath.Join(dir, "b"))
	require.NoError(t, err)
	require.True(t, os.SameFile(aInfo, bInfo), "Link must produce a real hard link sharing the host inode")
}

func TestMknodCreatesEmptyRegularFile(t *testing.T) {
	fs, dir := newTestRealFS(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dev"), 0755))

	require.NoError(t, fs.Mknod("/dev/null", 0666))

	info, err := os.Stat(filepath.Join(dir, "dev", "null"))
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())
	require.Zero(t, info.Size())
}

func TestMknodFailsIfPathExists(t *testing.T) {
	fs, dir := newTestRealFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), nil, 0644))

	err := fs.Mknod("/x", 0666)
	require.Error(t, err)
}

func TestReadDirListsHostEntries(t *testing.T) {
	fs, dir := newTestRealFS(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), nil, 0644))

	entries, err := fs.ReadDir("/")
	require.NoError(t, err)

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	require.True(t, names["sub"])
	require.True(t, names["file.txt"])
}

func TestUtimeSetsHostTimestamps(t *testing.T) {
	fs, dir := newTestRealFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), nil, 0644))

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, fs.Utime("/x", mtime, mtime))

	info, err := os.Stat(filepath.Join(dir, "x"))
	require.NoError(t, err)
	require.WithinDuration(t, mtime, info.ModTime(), time.Second)
}

func TestRenameMovesHostObject(t *testing.T) {
	fs, dir := newTestRealFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old"), []byte("x"), 0644))

	require.NoError(t, fs.Rename("/old", "/new"))

	_, err := os.Stat(filepath.Join(dir, "old"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "new"))
	require.NoError(t, err)
}
