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

import "time"

// Magic identifies this operations table to the emulator's mount
// dispatch, the way a real fs_ops struct in the guest kernel would
// carry a magic number to pick the right vtable.
const Magic = 0x66616b65 // "fake"

// Creds carries the emulated task's effective ownership, supplied by
// the task/credential context collaborator (out of scope for this
// core — it is simply threaded through on every creating operation).
type Creds struct {
	Uid uint32
	Gid uint32
}

// AttrKind tags which single field of an Attr is meaningful. Modeling
// it this way — one field at a time, like fake.c's struct attr —
// resolves the "setattr size combined with other attrs" open question
// by construction: there is no way to represent a combined request.
type AttrKind int

const (
	AttrUid AttrKind = iota
	AttrGid
	AttrMode
	AttrSize
)

// Attr is a single attribute mutation request.
type Attr struct {
	Kind AttrKind
	Uid  uint32
	Gid  uint32
	Mode uint32
	Size int64
}

// Stat is the guest-visible view of an object: shadow-owned fields
// (Inode/Mode/Uid/Gid/Rdev) overwrite whatever the host reported;
// Size and Mtime are copied from the host stat. Atime and Ctime are
// not filled in and stay zero.
type Stat struct {
	Inode int64
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Rdev  uint32
	Size  int64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// StatFS is the statfs result. FS.Statfs returns it zero-valued: no
// host figures are filled in, and realfs has no statfs call.
type StatFS struct {
	BlockSize  int64
	TotalBytes int64
	FreeBytes  int64
}
