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
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// DefaultBusyTimeout is the busy_timeout PRAGMA value, in milliseconds,
// applied when no override is configured.
const DefaultBusyTimeout = 30000

// EnvBusyTimeout overrides DefaultBusyTimeout when set.
const EnvBusyTimeout = "FAKEFS_BUSY_TIMEOUT"

// BusyTimeoutMillis resolves the busy_timeout PRAGMA value: a positive
// explicit override first, then a positive EnvBusyTimeout value read
// through getenv, then the default.
func BusyTimeoutMillis(override int, getenv func(string) string) int {
	if override > 0 {
		return override
	}
	if getenv == nil {
		return DefaultBusyTimeout
	}
	if v := getenv(EnvBusyTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultBusyTimeout
}

// BuildDSN builds the SQLite DSN for the libsql driver. Only
// _busy_timeout is meaningful here — libsql ignores the rest of the
// pragma-via-DSN parameters, so journal_mode/synchronous are set
// explicitly via applyPragmas after the connection opens.
func BuildDSN(path string, busyTimeoutMillis int) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeoutMillis)
}

// schemaSQL creates the three relations described by the external
// interface: stats, paths and meta. Kept idempotent (IF NOT EXISTS) so
// it can run unconditionally on every mount as the migration step.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS stats (
    inode INTEGER PRIMARY KEY AUTOINCREMENT,
    stat BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS paths (
    path BLOB PRIMARY KEY,
    inode INTEGER NOT NULL REFERENCES stats(inode)
);

CREATE INDEX IF NOT EXISTS idx_paths_inode ON paths(inode);

CREATE TABLE IF NOT EXISTS meta (
    db_inode INTEGER
);
`

// initMetaRow seeds the meta singleton with a placeholder row so that
// later "update meta set db_inode = ?" calls always affect a row.
const initMetaRow = `
INSERT INTO meta (db_inode)
SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM meta);
`

// execPragma runs a PRAGMA statement via Query rather than Exec: the
// libsql driver returns a result set for PRAGMAs, and Exec against a
// statement that returns rows errors out.
func execPragma(db *sql.DB, pragma string) error {
	rows, err := db.Query(pragma)
	if err != nil {
		return err
	}
	return rows.Close()
}

// applyPragmas sets the journaling and durability pragmas this core
// depends on. busy_timeout must be set first: journal_mode=WAL needs
// exclusive access to convert the journal, and without a busy timeout
// in place a concurrent holder makes that conversion fail outright
// instead of waiting.
func applyPragmas(db *sql.DB, busyTimeoutMillis int) error {
	if err := execPragma(db, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := execPragma(db, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set journal_mode=WAL: %w", err)
	}
	if err := execPragma(db, "PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("set synchronous=NORMAL: %w", err)
	}
	if err := execPragma(db, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("set foreign_keys: %w", err)
	}
	return nil
}

// execStatements runs each semicolon-terminated statement in script
// individually. The libsql driver does not support multi-statement
// Exec, so a script has to be split and run one statement at a time.
func execStatements(db *sql.DB, script string) error {
	for _, stmt := range splitStatements(script) {
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
