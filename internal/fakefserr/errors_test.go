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

package fakefserr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"fakefs/internal/common"
)

func TestMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"not found", common.ErrNotFound, ENOENT},
		{"exists", common.ErrExists, EEXIST},
		{"not dir", common.ErrNotDir, ENOTDIR},
		{"is dir", common.ErrIsDir, EISDIR},
		{"not empty", common.ErrNotEmpty, ENOTEMPTY},
		{"invalid path", common.ErrInvalidPath, EINVAL},
		{"invalid type", common.ErrInvalidType, EINVAL},
		{"invalid mount", common.ErrInvalidMount, EINVAL},
		{"not supported", common.ErrNotSupported, ENOTSUP},
		{"read only", common.ErrReadOnly, EROFS},
		{"io", common.ErrIO, EIO},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Map(tt.in))
		})
	}
}

func TestMapPassesThroughUnrecognized(t *testing.T) {
	t.Parallel()

	host := errors.New("some host-surfaced error")
	assert.Equal(t, host, Map(host))
}

func TestFatalWrapsAndUnwraps(t *testing.T) {
	t.Parallel()

	underlying := errors.New("disk on fire")
	fatal := NewFatal("path_create", underlying)

	assert.True(t, IsFatal(fatal))
	assert.False(t, IsFatal(underlying))
	assert.True(t, errors.Is(fatal, underlying))
	assert.Contains(t, fatal.Error(), "path_create")
}
