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

package common

import "errors"

// Sentinel errors shared by the metadata store, the mount lifecycle and
// the operation layer. These carry kind, not host errno — the syscall
// mapping lives in internal/fakefserr.
var (
	ErrNotFound     = errors.New("not found")
	ErrExists       = errors.New("already exists")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrNotEmpty     = errors.New("directory not empty")
	ErrInvalidPath  = errors.New("invalid path")
	ErrInvalidType  = errors.New("wrong file type")
	ErrInvalidMount = errors.New("invalid mount")
	ErrNotSupported = errors.New("not supported")
	ErrReadOnly     = errors.New("read-only filesystem")
	ErrIO           = errors.New("I/O error")
)
