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

package metastore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"fakefs/internal/dbretry"
	"fakefs/internal/fakefserr"
)

// Store owns the single database handle and the single mutex for one
// mount. Every exported operation takes the mutex via Begin and
// releases it via the returned Tx's Commit or Rollback — transactions
// are not nested, and callers must not call Begin again before the
// prior Tx resolves.
type Store struct {
	db *bun.DB
	mu sync.Mutex

	Log *logrus.Entry
}

// New wraps an already-open, already-pragma'd *sql.DB.
func New(sqlDB *sql.DB, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		db:  bun.NewDB(sqlDB, sqlitedialect.New()),
		Log: log,
	}
}

// DB exposes the underlying *bun.DB for schema/migration code that
// runs outside any mount-mutex-guarded transaction (mount is single
// threaded with respect to itself by construction).
func (s *Store) DB() *bun.DB { return s.db }

// Tx is a transaction scoped to a single mutating or reading
// operation: begin acquires the mount mutex, then starts the store
// transaction; commit finishes the transaction, then releases the
// mutex; rollback aborts the transaction, then releases the mutex.
// Host-FS calls a caller makes between Begin and Commit/Rollback
// participate in the same logical transaction by convention — the
// metadata mutation is only ever issued after the host call succeeds.
type Tx struct {
	store *Store
	bunTx bun.Tx
	done  bool
}

// Begin acquires the mount mutex and starts a store transaction,
// retrying transient SQLITE_BUSY contention before giving up.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	s.mu.Lock()
	var bunTx bun.Tx
	err := dbretry.Do(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		bunTx = tx
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return &Tx{store: s, bunTx: bunTx}, nil
}

// Commit finishes the transaction, then releases the mutex. A commit
// failure after a successful host-FS mutation is the "errors raised
// by metadata mutation after a successful host-FS mutation" case —
// callers must treat it as fatal, not retry it.
func (t *Tx) Commit() error {
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	if err := t.bunTx.Commit(); err != nil {
		t.store.Log.WithError(err).Error("metastore: commit failed")
		return fakefserr.NewFatal("commit", err)
	}
	return nil
}

// Rollback aborts the transaction, then releases the mutex.
func (t *Tx) Rollback() error {
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	return t.bunTx.Rollback()
}
