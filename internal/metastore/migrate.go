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
)

// ApplyPragmas sets the journaling and durability pragmas this store
// depends on. Exported so internal/mount can apply them right after
// opening the connection, before any query runs.
func ApplyPragmas(db *sql.DB, busyTimeoutMillis int) error {
	return applyPragmas(db, busyTimeoutMillis)
}

// Migrate creates the stats/paths/meta relations if they are not
// already present, and seeds the meta singleton row.
func Migrate(db *sql.DB) error {
	if err := execStatements(db, schemaSQL); err != nil {
		return err
	}
	return execStatements(db, initMetaRow)
}

// ReadDBInode reads the host inode recorded the last time this store
// was mounted, or 0 if meta has never been written to.
func ReadDBInode(ctx context.Context, s *Store) (int64, error) {
	var inode sql.NullInt64
	err := s.db.NewSelect().Table("meta").Column("db_inode").Limit(1).Scan(ctx, &inode)
	if err != nil {
		return 0, s.die("read_db_inode", err)
	}
	return inode.Int64, nil
}

// WriteDBInode overwrites the meta singleton's db_inode column.
func WriteDBInode(ctx context.Context, s *Store, inode int64) error {
	_, err := s.db.NewUpdate().Table("meta").Set("db_inode = ?", inode).Where("1 = 1").Exec(ctx)
	if err != nil {
		return s.die("write_db_inode", err)
	}
	return nil
}

// SweepOrphanStats deletes every stats row with no referencing paths
// row, the mount-time cleanup for inodes that were unlinked/rmdir'd
// down to zero links.
func SweepOrphanStats(ctx context.Context, s *Store) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM stats WHERE inode NOT IN (SELECT inode FROM paths)
`)
	if err != nil {
		return s.die("sweep_orphans", err)
	}
	return nil
}
