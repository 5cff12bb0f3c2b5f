// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

import "fmt"

func isValidLogRotateConfig(c *LogRotateLoggingConfig) error {
	if c.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

func isValidSyncMethod(m SyncMethod) error {
	switch m {
	case SyncMethodFsync, SyncMethodFsyncWritethrough, SyncMethodFdatasync, SyncMethodOpenSync:
		return nil
	default:
		return fmt.Errorf("invalid sync method: %q", m)
	}
}

func isValidDFSConfig(c *DFSConfig) error {
	if c.ConnectRetries < 0 {
		return fmt.Errorf("connect-retries cannot be negative")
	}
	if c.ConnectBackoffMin <= 0 || c.ConnectBackoffMax < c.ConnectBackoffMin {
		return fmt.Errorf("connect-backoff-min must be positive and connect-backoff-max must not be smaller than it")
	}
	for alias, addrs := range c.Namenodes {
		if len(addrs) == 0 {
			return fmt.Errorf("namenode alias %q has no addresses", alias)
		}
	}
	return nil
}

// Validate returns a non-nil error if the config is invalid. It does not
// touch the filesystem or network; that happens lazily at InitFileAccess
// and first DFS connect.
func Validate(c *Config) error {
	if c.MaxFilesPerProcess < MinFreeDescriptors+ReservedDescriptors {
		return fmt.Errorf("max-files-per-process (%d) leaves no room above the reserved+minimum descriptor floor (%d)",
			c.MaxFilesPerProcess, MinFreeDescriptors+ReservedDescriptors)
	}

	if err := isValidSyncMethod(c.Fsync.Method); err != nil {
		return fmt.Errorf("error parsing fsync config: %w", err)
	}

	if err := isValidLogRotateConfig(&c.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	if err := isValidDFSConfig(&c.DFS); err != nil {
		return fmt.Errorf("error parsing dfs config: %w", err)
	}

	return nil
}
