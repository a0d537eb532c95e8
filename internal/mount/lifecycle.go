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

// Package mount runs the sequence that turns a data directory and its
// meta.db sidecar into a usable operations table: validating the
// layout, opening and pragma'ing the store, reconciling host-inode
// relocation when needed, and sweeping orphaned metadata rows.
package mount

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	_ "github.com/tursodatabase/go-libsql"

	"fakefs/internal/common"
	"fakefs/internal/fakefs"
	"fakefs/internal/metastore"
	"fakefs/internal/realfs"
)

// sqliteMagic is the first 16 bytes of every well-formed SQLite
// database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// Options configures a single Mount call.
type Options struct {
	// BusyTimeoutMillis overrides metastore.DefaultBusyTimeout when
	// positive.
	BusyTimeoutMillis int
	// DenyGlobs are gitignore-style patterns the rebuild walk skips.
	DenyGlobs []string
	Log       *logrus.Entry
}

// Handle is a live mount: the operations table plus everything needed
// to tear it down cleanly.
type Handle struct {
	FS    *fakefs.FS
	Store *metastore.Store
	Real  realfs.FS

	db   *sql.DB
	lock *flock.Flock
	log  *logrus.Entry
}

// Close releases the advisory host lock and closes the store's
// connection. It does not touch the host data directory.
func (h *Handle) Close() error {
	dbErr := h.db.Close()
	lockErr := h.lock.Unlock()
	if dbErr != nil {
		return dbErr
	}
	return lockErr
}

// Mount runs the lifecycle against dataDir, the mount's "data/"
// subdirectory. dataDir's sibling meta.db (same parent, basename
// swapped to "meta.db") must already exist as a valid SQLite file —
// Mount never creates one; see cmd/fakefs's init subcommand for that.
func Mount(ctx context.Context, dataDir string, opts Options) (*Handle, error) {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	dataDir = filepath.Clean(dataDir)
	if filepath.Base(dataDir) != "data" {
		return nil, fmt.Errorf("mount: %s: %w", dataDir, common.ErrInvalidMount)
	}
	metaPath := filepath.Join(filepath.Dir(dataDir), "meta.db")

	if err := checkSQLiteMagic(metaPath); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(filepath.Dir(dataDir), "meta.db.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("mount: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("mount: %s: %w", dataDir, common.ErrInvalidMount)
	}

	busyMillis := metastore.BusyTimeoutMillis(opts.BusyTimeoutMillis, os.Getenv)
	db, err := sql.Open("libsql", metastore.BuildDSN(metaPath, busyMillis))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("mount: open %s: %w", metaPath, err)
	}
	if err := metastore.ApplyPragmas(db, busyMillis); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	real, err := realfs.New(dataDir)
	if err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("mount: realfs: %w", err)
	}

	if err := metastore.Migrate(db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	store := metastore.New(db, log)

	relocated, err := checkRelocation(ctx, store, metaPath)
	if err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	if relocated {
		log.WithField("meta", metaPath).Warn("mount: host inode changed since last mount, rebuilding")
		if err := Rebuild(ctx, store, real, opts.DenyGlobs); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, err
		}
	}

	if err := writeBackInode(ctx, store, metaPath); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	if err := sweepOrphans(ctx, store); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	ops := fakefs.New(store, real, log)
	return &Handle{FS: ops, Store: store, Real: real, db: db, lock: lock, log: log}, nil
}

func checkSQLiteMagic(metaPath string) error {
	f, err := os.Open(metaPath)
	if err != nil {
		return fmt.Errorf("mount: %s: %w", metaPath, common.ErrInvalidMount)
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := f.Read(header); err != nil {
		return fmt.Errorf("mount: %s: %w", metaPath, common.ErrInvalidMount)
	}
	if !bytes.Equal(header, sqliteMagic) {
		return fmt.Errorf("mount: %s: %w", metaPath, common.ErrInvalidMount)
	}
	return nil
}

// checkRelocation compares the db_inode stored in meta against the
// actual host inode of metaPath, reporting whether they disagree.
func checkRelocation(ctx context.Context, store *metastore.Store, metaPath string) (bool, error) {
	stored, err := metastore.ReadDBInode(ctx, store)
	if err != nil {
		return false, err
	}
	if stored == 0 {
		// First mount of a freshly initialized meta.db: nothing to
		// compare against yet.
		return false, nil
	}
	actual, err := hostInode(metaPath)
	if err != nil {
		return false, fmt.Errorf("mount: stat %s: %w", metaPath, err)
	}
	return stored != actual, nil
}

func writeBackInode(ctx context.Context, store *metastore.Store, metaPath string) error {
	actual, err := hostInode(metaPath)
	if err != nil {
		return fmt.Errorf("mount: stat %s: %w", metaPath, err)
	}
	return metastore.WriteDBInode(ctx, store, actual)
}

func sweepOrphans(ctx context.Context, store *metastore.Store) error {
	return metastore.SweepOrphanStats(ctx, store)
}

func hostInode(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	ino, ok := platformInode(info)
	if !ok {
		return 0, fmt.Errorf("mount: %s: host inode not available on this platform", path)
	}
	return ino, nil
}
