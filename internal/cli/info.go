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

	"github.com/spf13/cobra"

	"fakefs/internal/metastore"
	"fakefs/internal/mount"
)

var infoCmd = &cobra.Command{
	Use:   "info <data-dir>",
	Short: "Print mount diagnostics for a data directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	dataDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	handle, err := mount.Mount(cmd.Context(), dataDir, mount.Options{})
	if err != nil {
		return fmt.Errorf("mount %s: %w", dataDir, err)
	}
	defer handle.Close()

	inode, err := metastore.ReadDBInode(cmd.Context(), handle.Store)
	if err != nil {
		return err
	}

	fmt.Printf("Data dir:     %s\n", dataDir)
	fmt.Printf("Host root:    %s\n", handle.Real.Root())
	fmt.Printf("Stored inode: %d\n", inode)
	return nil
}
