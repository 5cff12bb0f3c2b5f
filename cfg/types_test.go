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

package cfg_test

import (
	"testing"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOctal_UnmarshalAndString(t *testing.T) {
	var o cfg.Octal
	require.NoError(t, o.UnmarshalText([]byte("600")))
	assert.Equal(t, cfg.Octal(0600), o)
	assert.Equal(t, "0600", o.String())
}

func TestLogSeverity_Rank(t *testing.T) {
	assert.Less(t, cfg.DebugLogSeverity.Rank(), cfg.InfoLogSeverity.Rank())
	assert.Equal(t, -1, cfg.LogSeverity("bogus").Rank())
}

func TestLogSeverity_UnmarshalRejectsUnknown(t *testing.T) {
	var l cfg.LogSeverity
	assert.Error(t, l.UnmarshalText([]byte("LOUD")))
}

func TestSyncMethod_UnmarshalNormalizesCase(t *testing.T) {
	var m cfg.SyncMethod
	require.NoError(t, m.UnmarshalText([]byte("FDATASYNC")))
	assert.Equal(t, cfg.SyncMethod(cfg.SyncMethodFdatasync), m)
}

func TestSyncMethod_UnmarshalRejectsUnknown(t *testing.T) {
	var m cfg.SyncMethod
	assert.Error(t, m.UnmarshalText([]byte("O_DIRECT")))
}
