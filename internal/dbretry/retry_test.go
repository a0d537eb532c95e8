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

package dbretry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDatabaseLocked(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDatabaseLocked(errors.New("database is locked")))
	assert.True(t, IsDatabaseLocked(errors.New("database table is locked")))
	assert.False(t, IsDatabaseLocked(errors.New("no such table: paths")))
	assert.False(t, IsDatabaseLocked(nil))
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoDoesNotRetryOnOtherErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	want := errors.New("no such table: paths")
	err := Do(context.Background(), func() error {
		attempts++
		return want
	})

	require.ErrorIs(t, err, want)
	assert.Equal(t, 1, attempts)
}
