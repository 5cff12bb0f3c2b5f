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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlags_DefaultsRoundtrip(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)

	require.NoError(t, cfg.BindFlags(fs))
	require.NoError(t, fs.Parse(nil))

	assert.Equal(t, cfg.DefaultMaxFilesPerProcess, viper.GetInt("max-files-per-process"))
	assert.True(t, viper.GetBool("fsync.enabled"))
	assert.Equal(t, cfg.SyncMethodFsync, viper.GetString("fsync.method"))
}

func TestDefault_IsValid(t *testing.T) {
	c := cfg.Default()
	assert.NoError(t, cfg.Validate(&c))
}

func TestConfigString_ContainsKeyFields(t *testing.T) {
	c := cfg.Default()
	s := c.String()
	assert.Contains(t, s, "max-files-per-process=1000")
	assert.Contains(t, s, "fsync.method=fsync")
}

func TestNamenodesFor(t *testing.T) {
	c := cfg.Default()
	c.DFS.Namenodes = map[string][]string{"prod": {"nn1:8020", "nn2:8020"}}

	addrs, ok := cfg.NamenodesFor(&c, "prod")
	assert.True(t, ok)
	assert.Equal(t, []string{"nn1:8020", "nn2:8020"}, addrs)

	_, ok = cfg.NamenodesFor(&c, "missing")
	assert.False(t, ok)
}
