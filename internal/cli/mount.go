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

var mountConfigPath string

var mountCmd = &cobra.Command{
	Use:   "mount <data-dir>",
	Short: "Run the mount lifecycle against a data directory",
	Long: `Runs MountLifecycle against data-dir: validates the meta.db sidecar,
opens and pragma's the store, reconciles host-inode relocation if
needed, sweeps orphaned metadata, and reports the resulting mount is
ready. This command does not attach to any syscall surface — it exists
for manual verification and scripting, not as a long-running server.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	mountCmd.Flags().StringVar(&mountConfigPath, "config", "", "path to a mount-options YAML file")
	rootCmd.AddCommand(mountCmd)
}

func runMount(cmd *cobra.Command, args []string) error {
	dataDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	opts := mount.Options{Log: logrus.NewEntry(logrus.StandardLogger())}
	if mountConfigPath != "" {
		cfg, err := mountconfig.Load(mountConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts.BusyTimeoutMillis = cfg.BusyTimeoutMillis
		opts.DenyGlobs = cfg.DenyGlobs
	}

	handle, err := mount.Mount(cmd.Context(), dataDir, opts)
	if err != nil {
		return fmt.Errorf("mount %s: %w", dataDir, err)
	}
	defer handle.Close()

	fmt.Printf("Mounted %s\n", dataDir)
	return nil
}
