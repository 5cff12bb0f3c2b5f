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

package vfd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/filecachedb/vfdcache/common"
)

// RemoveStaleTempFiles walks every configured temp tablespace's temp
// directory at startup and removes every file whose name starts with
// cfg.TempFilePrefix, left behind by a process that never reached
// AtProcExit; other files are kept. Each tablespace's temp directory may itself
// contain one subdirectory per database (DFS-backed tablespaces namespace
// temp files that way to avoid collisions across databases sharing a
// cluster); both layouts are handled by the same breadth-first walk, which
// only ever needs to go one level deep but is written as a generic queue
// walk so a future deeper nesting doesn't require new code.
func (m *Manager) RemoveStaleTempFiles() error {
	var firstErr error
	for _, tablespace := range m.cfg.TempTablespaces {
		root := tempDirFor(tablespace)
		if err := m.sweepDir(root); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) sweepDir(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	dirs := common.NewLinkedListQueue[string]()
	dirs.Push(root)

	var firstErr error
	for !dirs.IsEmpty() {
		dir := dirs.Pop()
		entries, err := os.ReadDir(dir)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				dirs.Push(full)
				continue
			}
			if !strings.HasPrefix(entry.Name(), cfg.TempFilePrefix) {
				continue
			}
			if err := os.Remove(full); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
