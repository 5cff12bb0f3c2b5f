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

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration consulted by the vfd manager at
// InitFileAccess time and by the cmd/ entrypoint.
type Config struct {
	// MaxFilesPerProcess caps the number of real descriptors the probe may
	// report as safe, independent of what the kernel would otherwise allow.
	MaxFilesPerProcess int `yaml:"max-files-per-process"`

	Fsync FsyncConfig `yaml:"fsync"`

	DFS DFSConfig `yaml:"dfs"`

	TempTablespaces []string `yaml:"temp-tablespaces"`

	TempFileMode Octal `yaml:"temp-file-mode"`

	Logging LoggingConfig `yaml:"logging"`
}

// FsyncConfig controls whether FileSync flushes local files. Method is
// validated, but FileSync does not consult it: an enabled local sync always
// calls os.File.Sync.
type FsyncConfig struct {
	Enabled bool       `yaml:"enabled"`
	Method  SyncMethod `yaml:"method"`
}

// DFSConfig controls how the remote back end resolves and dials endpoints.
type DFSConfig struct {
	// Namenodes maps a short alias (as might appear before the "://" in a
	// path) to one or more "host:port" addresses; more than one address
	// under the same alias is treated as an HA namenode list and consulted
	// round robin on connect failure.
	Namenodes map[string][]string `yaml:"namenodes"`

	DefaultReplicas uint `yaml:"default-replicas"`

	DialTimeout time.Duration `yaml:"dial-timeout"`

	ConnectRetries int `yaml:"connect-retries"`

	ConnectBackoffMin time.Duration `yaml:"connect-backoff-min"`
	ConnectBackoffMax time.Duration `yaml:"connect-backoff-max"`
}

// LoggingConfig mirrors the teacher's logging config shape: a severity
// level plus a file path and rotation policy. The logger built in cmd
// uses only Severity and always writes to stderr.
type LoggingConfig struct {
	Severity  LogSeverity          `yaml:"severity"`
	File      string               `yaml:"file"`
	Format    string               `yaml:"format"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

// LogRotateLoggingConfig holds a log-file rotation policy. Validate checks
// it; no log file sink reads it.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// BindFlags registers the process flags and binds them into viper, in the
// same style as the teacher's cfg.BindFlags: one flagSet.XxxP call per
// field, immediately bound.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.IntP("max-files-per-process", "", DefaultMaxFilesPerProcess,
		"Upper bound on real descriptors the probe may report as safe.")
	if err := viper.BindPFlag("max-files-per-process", flagSet.Lookup("max-files-per-process")); err != nil {
		return err
	}

	flagSet.BoolP("fsync-enabled", "", true, "Flush local writes on FileSync; when false, local FileSync is a no-op.")
	if err := viper.BindPFlag("fsync.enabled", flagSet.Lookup("fsync-enabled")); err != nil {
		return err
	}

	flagSet.StringP("sync-method", "", SyncMethodFsync,
		"One of fsync, fsync_writethrough, fdatasync, open_sync.")
	if err := viper.BindPFlag("fsync.method", flagSet.Lookup("sync-method")); err != nil {
		return err
	}

	flagSet.StringSliceP("temp-tablespaces", "", nil,
		"Temp tablespace directories: FileNameOpen uses the first; the startup sweep walks all.")
	if err := viper.BindPFlag("temp-tablespaces", flagSet.Lookup("temp-tablespaces")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(InfoLogSeverity), "TRACE|DEBUG|INFO|WARNING|ERROR|OFF.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Log file path (stored in the config; the logger writes to stderr).")
	if err := viper.BindPFlag("logging.file", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	return nil
}
