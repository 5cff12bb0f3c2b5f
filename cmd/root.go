// Copyright 2024 Google LLC
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

// Package cmd implements the vfdcached command surface: probe, sweep, and
// serve, each exercising one corner of the vfd manager without requiring a
// full host process around it.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/filecachedb/vfdcache/cfg"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	config        = cfg.Default()
)

var rootCmd = &cobra.Command{
	Use:   "vfdcached",
	Short: "Exercise the virtual file descriptor cache manager from the command line",
	Long: `vfdcached hosts the vfd manager's lifecycle operations outside of an
embedding process: probing the safe descriptor budget, sweeping stale
temp files left behind by a prior run, and serving as a long-lived process
that installs the usual exit hooks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		return cfg.Validate(&config)
	},
}

// Execute runs the command tree, matching the teacher's top-level
// entrypoint shape.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(flags)

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			configFileErr = fmt.Errorf("reading config file %q: %w", cfgFile, err)
			return
		}
	}
	if err := viper.Unmarshal(&config); err != nil {
		unmarshalErr = fmt.Errorf("unmarshaling config: %w", err)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch config.Logging.Severity {
	case cfg.TraceLogSeverity, cfg.DebugLogSeverity:
		level = slog.LevelDebug
	case cfg.WarningLogSeverity:
		level = slog.LevelWarn
	case cfg.ErrorLogSeverity:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
