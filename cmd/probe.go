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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filecachedb/vfdcache/vfd"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the fd-budget probe and print the resulting max-safe-fds",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := vfd.NewManager(&config, vfd.WithLogger(newLogger()))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), m.MaxSafeFds())
		return nil
	},
}
