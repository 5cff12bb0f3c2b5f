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

package cfg_test

import (
	"testing"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/stretchr/testify/assert"
)

func TestValidate_RejectsTinyMaxFiles(t *testing.T) {
	c := cfg.Default()
	c.MaxFilesPerProcess = 5
	assert.Error(t, cfg.Validate(&c))
}

func TestValidate_RejectsBadSyncMethod(t *testing.T) {
	c := cfg.Default()
	c.Fsync.Method = "not-a-method"
	assert.Error(t, cfg.Validate(&c))
}

func TestValidate_RejectsBadLogRotate(t *testing.T) {
	c := cfg.Default()
	c.Logging.LogRotate.MaxFileSizeMb = 0
	assert.Error(t, cfg.Validate(&c))
}

func TestValidate_RejectsEmptyNamenodeAlias(t *testing.T) {
	c := cfg.Default()
	c.DFS.Namenodes = map[string][]string{"broken": {}}
	assert.Error(t, cfg.Validate(&c))
}

func TestValidate_RejectsInvertedBackoffWindow(t *testing.T) {
	c := cfg.Default()
	c.DFS.ConnectBackoffMin = 2 * c.DFS.ConnectBackoffMax
	assert.Error(t, cfg.Validate(&c))
}
