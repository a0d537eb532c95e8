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

import "github.com/uptrace/bun"

// StatModel is the Bun mapping of the stats relation: one row per
// guest inode, keyed by an auto-assigned 64-bit inode id.
type StatModel struct {
	bun.BaseModel `bun:"table:stats"`

	Inode int64  `bun:"inode,pk,autoincrement"`
	Stat  []byte `bun:"stat,notnull"`
}

// PathModel is the Bun mapping of the paths relation: a many-to-one
// map from guest path (opaque bytes) to guest inode.
type PathModel struct {
	bun.BaseModel `bun:"table:paths"`

	Path  []byte `bun:"path,pk"`
	Inode int64  `bun:"inode,notnull"`
}

// MetaModel is the Bun mapping of the meta singleton: the host inode
// of the database file as of the most recent successful mount.
type MetaModel struct {
	bun.BaseModel `bun:"table:meta"`

	DBInode int64 `bun:"db_inode"`
}
