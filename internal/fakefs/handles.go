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

package fakefs

import (
	"sync"

	"fakefs/internal/realfs"
)

// HandleID identifies an open file or directory.
type HandleID uint64

// Handle is an open fd's view of the shadow: the fake_inode captured
// at open time binds the fd to a specific stats row even if the path
// is later renamed or unlinked out from under it. Fstat/Fsetattr
// target this inode directly rather than re-resolving the path.
type Handle struct {
	Ino   int64
	Path  string
	IsDir bool
	file  realfs.File
}

type handleTable struct {
	mu      sync.Mutex
	entries map[HandleID]*Handle
	next    HandleID
}

func newHandleTable() *handleTable {
	return &handleTable{entries: make(map[HandleID]*Handle), next: 1}
}

func (t *handleTable) allocate(h *Handle) HandleID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.entries[id] = h
	return id
}

func (t *handleTable) get(id HandleID) (*Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.entries[id]
	return h, ok
}

func (t *handleTable) release(id HandleID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}
