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

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/filecachedb/vfdcache/vfd"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep [base-dir...]",
	Short: "Remove stale temp files left behind by a process that never reached AtProcExit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		if len(args) > 0 {
			config.TempTablespaces = args
		}
		m, err := vfd.NewManager(&config, vfd.WithLogger(logger))
		if err != nil {
			return err
		}
		return m.RemoveStaleTempFiles()
	},
}
