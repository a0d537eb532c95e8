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

package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	_ "github.com/tursodatabase/go-libsql"

	"fakefs/internal/metastore"
)

var initCmd = &cobra.Command{
	Use:   "init <data-dir>",
	Short: "Create a fresh data directory and its meta.db shadow store",
	Long: `Creates the data/ directory a fakefs mount is rooted at, plus the
sibling meta.db SQLite file that holds its shadow metadata. data-dir's
basename must be exactly "data" — that is the layout Mount expects.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if filepath.Base(dataDir) != "data" {
		return fmt.Errorf("data-dir must be named \"data\", got %q", filepath.Base(dataDir))
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dataDir, err)
	}

	metaPath := filepath.Join(filepath.Dir(dataDir), "meta.db")
	if _, err := os.Stat(metaPath); err == nil {
		fmt.Printf("%s already exists (not reinitialized)\n", metaPath)
		return nil
	}

	busyMillis := metastore.BusyTimeoutMillis(0, os.Getenv)
	db, err := sql.Open("libsql", metastore.BuildDSN(metaPath, busyMillis))
	if err != nil {
		return fmt.Errorf("open %s: %w", metaPath, err)
	}
	defer db.Close()

	if err := metastore.ApplyPragmas(db, busyMillis); err != nil {
		return err
	}
	if err := metastore.Migrate(db); err != nil {
		return err
	}

	store := metastore.New(db, nil)
	ctx := cmd.Context()
	info, err := os.Stat(metaPath)
	if err != nil {
		return err
	}
	ino, ok := hostInodeOf(info)
	if !ok {
		return fmt.Errorf("host inode not available on this platform")
	}
	if err := metastore.WriteDBInode(ctx, store, ino); err != nil {
		return err
	}

	fmt.Printf("Initialized fakefs mount:\n  data:    %s\n  meta.db: %s\n", dataDir, metaPath)
	return nil
}
