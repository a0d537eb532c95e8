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
	"encoding/binary"
	"fmt"
)

// File mode type bits, matching the guest's S_IFMT constants.
const (
	ModeFIFO     uint32 = 0010000
	ModeChar     uint32 = 0020000
	ModeDir      uint32 = 0040000
	ModeBlock    uint32 = 0060000
	ModeFile     uint32 = 0100000
	ModeSymlink  uint32 = 0120000
	ModeSocket   uint32 = 0140000
	ModeTypeMask uint32 = 0170000
)

// RootIno is fake inode 1. Unlike the teacher's manually-incremented
// counter, inode numbers in this store come from stats.inode's
// AUTOINCREMENT, and nothing reserves this value for the mount root:
// the first stats row ever created gets it.
const RootIno int64 = 1

// Ishstat is the shadow stat record: four 32-bit fields carrying type,
// permission, ownership and device-node metadata. It is the in-memory
// form of the on-disk "stat" blob described by the external interface.
type Ishstat struct {
	Mode uint32
	Uid  uint32
	Gid  uint32
	Rdev uint32
}

// IshstatSize is the encoded size in bytes: four little-endian uint32
// fields, no padding, no version byte.
const IshstatSize = 16

// EncodeIshstat serializes st into the 16-byte wire layout.
func EncodeIshstat(st Ishstat) []byte {
	buf := make([]byte, IshstatSize)
	binary.LittleEndian.PutUint32(buf[0:4], st.Mode)
	binary.LittleEndian.PutUint32(buf[4:8], st.Uid)
	binary.LittleEndian.PutUint32(buf[8:12], st.Gid)
	binary.LittleEndian.PutUint32(buf[12:16], st.Rdev)
	return buf
}

// DecodeIshstat parses the 16-byte wire layout. An input of any other
// length is a store-corruption signal — callers should treat the
// resulting error as fatal, not recoverable.
func DecodeIshstat(buf []byte) (Ishstat, error) {
	if len(buf) != IshstatSize {
		return Ishstat{}, fmt.Errorf("ishstat: expected %d bytes, got %d", IshstatSize, len(buf))
	}
	return Ishstat{
		Mode: binary.LittleEndian.Uint32(buf[0:4]),
		Uid:  binary.LittleEndian.Uint32(buf[4:8]),
		Gid:  binary.LittleEndian.Uint32(buf[8:12]),
		Rdev: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// IsDir reports whether the type bits name a directory.
func (st Ishstat) IsDir() bool { return st.Mode&ModeTypeMask == ModeDir }

// IsSymlink reports whether the type bits name a symbolic link.
func (st Ishstat) IsSymlink() bool { return st.Mode&ModeTypeMask == ModeSymlink }

// IsRegular reports whether the type bits name a regular file.
func (st Ishstat) IsRegular() bool { return st.Mode&ModeTypeMask == ModeFile }

// WithMode returns st with its permission bits replaced by mode's low
// bits while keeping st's existing type bits — the setattr mode rule.
func (st Ishstat) WithMode(mode uint32) Ishstat {
	st.Mode = (st.Mode & ModeTypeMask) | (mode &^ ModeTypeMask)
	return st
}
