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

import "fmt"

// String renders the config for startup log lines. There is nothing secret
// in this struct (namenode addresses are operational topology, not
// credentials), so unlike the teacher's redacting Stringify this is a plain
// dump.
func (c Config) String() string {
	return fmt.Sprintf(
		"max-files-per-process=%d fsync.enabled=%t fsync.method=%s temp-tablespaces=%v dfs.default-replicas=%d dfs.connect-retries=%d logging.severity=%s logging.file=%q",
		c.MaxFilesPerProcess, c.Fsync.Enabled, c.Fsync.Method, c.TempTablespaces,
		c.DFS.DefaultReplicas, c.DFS.ConnectRetries, c.Logging.Severity, c.Logging.File)
}
