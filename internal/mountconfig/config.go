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

// Package mountconfig loads the YAML mount-options file a fakefs
// mount is started with.
package mountconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a mount's options file.
type Config struct {
	// DataDir is the "data/" directory fakefs is rooted at. Load
	// parses it as written; the mount command does not read it and
	// takes the data directory from its argument.
	DataDir string `yaml:"dataDir"`

	// BusyTimeoutMillis overrides metastore.DefaultBusyTimeout when
	// positive.
	BusyTimeoutMillis int `yaml:"busyTimeoutMillis"`

	// DenyGlobs lists gitignore-style patterns the rebuild walker
	// skips — primarily the meta.db sidecars living next to data/.
	DenyGlobs []string `yaml:"denyGlobs"`
}

// DefaultDenyGlobs covers the sidecar files every mount creates next
// to its data directory, so a config file doesn't have to repeat them.
var DefaultDenyGlobs = []string{
	"meta.db",
	"meta.db-wal",
	"meta.db-shm",
	"meta.db-journal",
	"meta.db.lock",
}

// Load reads and parses a mount-options file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.DenyGlobs = append(append([]string{}, DefaultDenyGlobs...), cfg.DenyGlobs...)
	return cfg, nil
}
