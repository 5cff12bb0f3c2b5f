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
	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
)

func TestDecodeHook_DecodesNestedConfig(t *testing.T) {
	input := map[string]interface{}{
		"max-files-per-process": 2000,
		"temp-file-mode":        "700",
		"fsync": map[string]interface{}{
			"enabled": true,
			"method":  "FDATASYNC",
		},
		"logging": map[string]interface{}{
			"severity": "debug",
		},
	}

	var out cfg.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: cfg.DecodeHook(),
		Result:     &out,
	})
	require.NoError(t, err)
	require.NoError(t, decoder.Decode(input))

	require.Equal(t, 2000, out.MaxFilesPerProcess)
	require.Equal(t, cfg.Octal(0700), out.TempFileMode)
	require.Equal(t, cfg.SyncMethod(cfg.SyncMethodFdatasync), out.Fsync.Method)
	require.Equal(t, cfg.DebugLogSeverity, out.Logging.Severity)
}
