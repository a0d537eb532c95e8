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
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fakefs/internal/mount"
	"fakefs/internal/mountconfig"
)

var fsckDenyGlobs []string

var fsckCmd = &cobra.Command{
	Use:   "fsck <data-dir>",
	Short: "Force a rebuild reconciliation against a data directory",
	Long: `Mounts data-dir and unconditionally runs the rebuild walk, even if the
stored host inode for meta.db still matches. Useful after a manual
edit to the host tree. As with mount, data-dir's sibling meta.db must
already exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runFsck,
}

func init() {
	fsckCmd.Flags().StringSliceVar(&fsckDenyGlobs, "deny-glob", nil, "additional gitignore-style pattern to skip during the walk")
	rootCmd.AddCommand(fsckCmd)
}

func runFsck(cmd *cobra.Command, args []string) error {
	dataDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	denyGlobs := append(append([]string{}, mountconfig.DefaultDenyGlobs...), fsckDenyGlobs...)
	log := logrus.NewEntry(logrus.StandardLogger())

	handle, err := mount.Mount(cmd.Context(), dataDir, mount.Options{Log: log, DenyGlobs: denyGlobs})
	if err != nil {
		return fmt.Errorf("mount %s: %w", dataDir, err)
	}
	defer handle.Close()

	if err := mount.Rebuild(cmd.Context(), handle.Store, handle.Real, denyGlobs); err != nil {
		return fmt.Errorf("rebuild %s: %w", dataDir, err)
	}

	fmt.Printf("Rebuilt shadow metadata for %s\n", dataDir)
	return nil
}
