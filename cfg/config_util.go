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

package cfg

// NamenodesFor resolves a host alias that appeared before the "://" prefix
// of a dfs-path to its configured HA address list, or reports that none is
// configured (callers then fall back to treating the alias itself as a
// literal "host:port").
func NamenodesFor(c *Config, alias string) ([]string, bool) {
	addrs, ok := c.DFS.Namenodes[alias]
	return addrs, ok
}
