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

// Package metastore is the shadow metadata store: a thin,
// transaction-scoped wrapper over the embedded stats/paths/meta
// relations. Every method here assumes it runs inside an active Tx
// (see tx.go) and returns a *fakefserr.Fatal wrapping a real
// database error for anything other than a benign "no rows" result —
// the store is authoritative, so an error here means the shadow
// itself cannot be trusted.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fakefs/internal/fakefserr"
)

// PathGetInode returns the inode bound to path, or 0 if no paths row
// names it.
func (s *Store) PathGetInode(ctx context.Context, tx *Tx, path []byte) (int64, error) {
	var row PathModel
	err := tx.bunTx.NewSelect().Model(&row).Column("inode").Where("path = ?", path).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, s.die("path_get_inode", err)
	}
	return row.Inode, nil
}

// PathReadStat joins paths and stats on path and returns the inode and
// decoded stat record, or ok=false if path is absent.
func (s *Store) PathReadStat(ctx context.Context, tx *Tx, path []byte) (inode int64, st Ishstat, ok bool, err error) {
	var (
		gotInode int64
		blob     []byte
	)
	scanErr := tx.bunTx.NewSelect().
		Table("stats").
		ColumnExpr("stats.inode, stats.stat").
		Join("JOIN paths ON paths.inode = stats.inode").
		Where("paths.path = ?", path).
		Scan(ctx, &gotInode, &blob)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return 0, Ishstat{}, false, nil
	}
	if scanErr != nil {
		return 0, Ishstat{}, false, s.die("path_read_stat", scanErr)
	}
	decoded, decErr := DecodeIshstat(blob)
	if decErr != nil {
		return 0, Ishstat{}, false, s.die("path_read_stat", decErr)
	}
	return gotInode, decoded, true, nil
}

// InodeReadStat reads the stat record for inode. Invariant 1 (every
// reachable inode has a stats row) means an absent row here is fatal,
// not a normal "not found" — the caller already proved the inode is
// reachable via a paths row or a live handle.
func (s *Store) InodeReadStat(ctx context.Context, tx *Tx, inode int64) (Ishstat, error) {
	var blob []byte
	err := tx.bunTx.NewSelect().Model((*StatModel)(nil)).Column("stat").
		Where("inode = ?", inode).Scan(ctx, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Ishstat{}, s.die("inode_read_stat", fmt.Errorf("missing stats row for inode %d", inode))
	}
	if err != nil {
		return Ishstat{}, s.die("inode_read_stat", err)
	}
	st, err := DecodeIshstat(blob)
	if err != nil {
		return Ishstat{}, s.die("inode_read_stat", err)
	}
	return st, nil
}

// InodeWriteStat overwrites the stat record for inode.
func (s *Store) InodeWriteStat(ctx context.Context, tx *Tx, inode int64, st Ishstat) error {
	_, err := tx.bunTx.NewUpdate().Model((*StatModel)(nil)).
		Set("stat = ?", EncodeIshstat(st)).
		Where("inode = ?", inode).
		Exec(ctx)
	if err != nil {
		return s.die("inode_write_stat", err)
	}
	return nil
}

// PathCreate inserts a new stats row, then a paths row bound to the
// just-inserted row id — atomic within tx's enclosing transaction.
func (s *Store) PathCreate(ctx context.Context, tx *Tx, path []byte, st Ishstat) (int64, error) {
	res, err := tx.bunTx.ExecContext(ctx, "INSERT INTO stats (stat) VALUES (?)", EncodeIshstat(st))
	if err != nil {
		return 0, s.die("path_create", err)
	}
	inode, err := res.LastInsertId()
	if err != nil {
		return 0, s.die("path_create", err)
	}
	if _, err := tx.bunTx.ExecContext(ctx, "INSERT INTO paths (path, inode) VALUES (?, ?)", path, inode); err != nil {
		return 0, s.die("path_create", err)
	}
	return inode, nil
}

// PathLink binds dst to src's inode. Fatal if src has no inode — the
// caller must have already verified src exists before calling this.
func (s *Store) PathLink(ctx context.Context, tx *Tx, src, dst []byte) error {
	inode, err := s.PathGetInode(ctx, tx, src)
	if err != nil {
		return err
	}
	if inode == 0 {
		return s.die("path_link", fmt.Errorf("source path has no inode"))
	}
	if _, err := tx.bunTx.ExecContext(ctx, "INSERT INTO paths (path, inode) VALUES (?, ?)", dst, inode); err != nil {
		return s.die("path_link", err)
	}
	return nil
}

// PathUnlink removes path's paths row. The stat row is left alone —
// it becomes orphaned if this was its last reference, and is swept at
// the next mount.
func (s *Store) PathUnlink(ctx context.Context, tx *Tx, path []byte) error {
	if _, err := tx.bunTx.ExecContext(ctx, "DELETE FROM paths WHERE path = ?", path); err != nil {
		return s.die("path_unlink", err)
	}
	return nil
}

// PathRename retargets src's paths row to dst, displacing (replacing)
// any existing row already at dst. Binding order matters: the new
// path is bound first, the match predicate second.
func (s *Store) PathRename(ctx context.Context, tx *Tx, src, dst []byte) error {
	if _, err := tx.bunTx.ExecContext(ctx, "UPDATE OR REPLACE paths SET path = ? WHERE path = ?", dst, src); err != nil {
		return s.die("path_rename", err)
	}
	return nil
}

// ListAllPaths returns every path currently recorded, for the rebuild
// walker's "present in paths but absent on host" reconciliation pass.
func (s *Store) ListAllPaths(ctx context.Context, tx *Tx) ([][]byte, error) {
	var rows []PathModel
	if err := tx.bunTx.NewSelect().Model(&rows).Column("path").Scan(ctx); err != nil {
		return nil, s.die("list_all_paths", err)
	}
	paths := make([][]byte, len(rows))
	for i, r := range rows {
		paths[i] = r.Path
	}
	return paths, nil
}

// die wraps err as fatal and logs it before returning — every call
// site hands the wrapped error straight back up to the operation
// layer's panic-recovery guard (internal/fakefs), which is the only
// place that decides to terminate the process.
func (s *Store) die(op string, err error) error {
	wrapped := fakefserr.NewFatal(op, err)
	s.Log.WithError(err).WithField("op", op).Error("metastore: fatal store error")
	return wrapped
}
