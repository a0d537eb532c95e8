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

// Package dbretry retries the embedded store's transient "database is
// locked" busy errors. It does not retry anything else — a store
// error of any other kind is returned to the caller after the first
// attempt.
package dbretry

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Options returns retry options tuned for SQLITE_BUSY contention on
// the mount mutex's matching store-level lock: exponential backoff
// from 20ms capped at 200ms, at most 5 attempts, scoped to the
// caller's context.
func Options(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(5),
		retry.Delay(20 * time.Millisecond),
		retry.MaxDelay(200 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsDatabaseLocked),
		retry.Context(ctx),
	}
}

// Do runs fn, retrying on transient lock contention.
func Do(ctx context.Context, fn func() error) error {
	return retry.Do(fn, Options(ctx)...)
}

// IsDatabaseLocked reports whether err looks like a transient
// SQLITE_BUSY condition rather than genuine corruption.
func IsDatabaseLocked(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "database table is locked")
}
