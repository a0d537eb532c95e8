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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteDBInode(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	initial, err := ReadDBInode(ctx, store)
	require.NoError(t, err)
	require.Equal(t, int64(0), initial)

	require.NoError(t, WriteDBInode(ctx, store, 12345))

	got, err := ReadDBInode(ctx, store)
	require.NoError(t, err)
	require.Equal(t, int64(12345), got)
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, Migrate(store.DB().DB))
	require.NoError(t, Migrate(store.DB().DB))
}

func TestSweepOrphanStatsRemovesUnreferencedRows(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	inode, err := store.PathCreate(ctx, tx, []byte("/a"), Ishstat{Mode: ModeFile | 0644})
	require.NoError(t, err)
	require.NoError(t, store.PathUnlink(ctx, tx, []byte("/a")))
	require.NoError(t, tx.Commit())

	// Orphaned: still readable before the sweep.
	tx2, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = store.InodeReadStat(ctx, tx2, inode)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())

	require.NoError(t, SweepOrphanStats(ctx, store))

	tx3, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx3.Rollback()
	_, err = store.InodeReadStat(ctx, tx3, inode)
	require.Error(t, err, "orphaned stats row should be gone after the sweep")
}
