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

package mount

import (
	"context"
	"os"
	"path"

	ignore "github.com/sabhiram/go-gitignore"

	"fakefs/internal/fakefserr"
	"fakefs/internal/metastore"
	"fakefs/internal/realfs"
)

// Rebuild walks the host tree rooted at real and reconciles it against
// the shadow: host paths with no paths row get a freshly synthesized
// stats row, and paths rows naming a host path that no longer exists
// are deleted. Paths rows whose host object is still present are kept
// with their stats unchanged. It runs inside a single transaction
// spanning the whole walk, so it is the one operation that holds the
// mount mutex for longer than a single primitive.
func Rebuild(ctx context.Context, store *metastore.Store, real realfs.FS, denyGlobs []string) error {
	matcher := ignore.CompileIgnoreLines(denyGlobs...)

	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}

	existing, err := store.ListAllPaths(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[string(p)] = false
	}

	walker := &rebuildWalker{ctx: ctx, store: store, tx: tx, real: real, matcher: matcher, seen: seen}
	if err := walker.walk("/"); err != nil {
		_ = tx.Rollback()
		return err
	}

	for p, found := range seen {
		if found {
			continue
		}
		if err := store.PathUnlink(ctx, tx, []byte(p)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

type rebuildWalker struct {
	ctx     context.Context
	store   *metastore.Store
	tx      *metastore.Tx
	real    realfs.FS
	matcher *ignore.GitIgnore
	seen    map[string]bool
}

func (w *rebuildWalker) walk(dir string) error {
	entries, err := w.real.ReadDir(dir)
	if err != nil {
		return fakefserr.Map(err)
	}

	for _, entry := range entries {
		childPath := path.Join(dir, entry.Name())
		if w.matcher.MatchesPath(childPath) {
			// A denied path still counts as present on the host: a
			// shadow row that already named it must survive the
			// rebuild, it just never gets walked into or synthesized
			// fresh.
			if _, ok := w.seen[childPath]; ok {
				w.seen[childPath] = true
			}
			continue
		}

		if _, ok := w.seen[childPath]; ok {
			w.seen[childPath] = true
		} else if err := w.synthesize(childPath, entry); err != nil {
			return err
		}

		if entry.IsDir() {
			if err := w.walk(childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// synthesize creates a best-effort stats row for a host object the
// shadow has never seen. Ownership and rdev are not recoverable from a
// plain directory walk, so uid/gid/rdev default to zero and the type
// bit is taken from the host's own mode — the one signal a freshly
// discovered path actually has.
func (w *rebuildWalker) synthesize(childPath string, entry os.FileInfo) error {
	mode := hostModeBits(entry)
	st := metastore.Ishstat{Mode: mode}
	_, err := w.store.PathCreate(w.ctx, w.tx, []byte(childPath), st)
	if err != nil {
		return err
	}
	w.seen[childPath] = true
	return nil
}

func hostModeBits(entry os.FileInfo) uint32 {
	perm := uint32(entry.Mode().Perm())
	switch {
	case entry.IsDir():
		return metastore.ModeDir | perm
	case entry.Mode()&os.ModeSymlink != 0:
		return metastore.ModeSymlink | perm
	default:
		return metastore.ModeFile | perm
	}
}
