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

// Package cli wires the fakefs command-line entry point: init, mount,
// fsck and info subcommands over internal/mount.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// SetVersion sets the version info for --version.
func SetVersion(v, c string) {
	version = v
	commit = c
	rootCmd.Version = fmt.Sprintf("%s (commit %s)", version, commit)
}

var rootCmd = &cobra.Command{
	Use:   "fakefs",
	Short: "Metadata-overlay filesystem core for iSH",
	Long:  `Manages a fakefs data directory and its meta.db shadow metadata store.`,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
