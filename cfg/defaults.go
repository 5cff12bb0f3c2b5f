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

// Default returns the configuration used during application startup,
// before a config file or flags have been parsed.
func Default() Config {
	return Config{
		MaxFilesPerProcess: DefaultMaxFilesPerProcess,
		Fsync: FsyncConfig{
			Enabled: true,
			Method:  SyncMethodFsync,
		},
		DFS: DFSConfig{
			DefaultReplicas:   DefaultDFSReplicas,
			DialTimeout:       DefaultDialTimeout,
			ConnectRetries:    DefaultConnectRetries,
			ConnectBackoffMin: DefaultConnectBackoffMin,
			ConnectBackoffMax: DefaultConnectBackoffMax,
		},
		TempFileMode: 0600,
		Logging: LoggingConfig{
			Severity: InfoLogSeverity,
			LogRotate: LogRotateLoggingConfig{
				MaxFileSizeMb:   512,
				BackupFileCount: 10,
				Compress:        true,
			},
		},
	}
}
