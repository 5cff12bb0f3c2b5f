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
	"fmt"
	"strconv"
	"strings"
)

// dfsPath is a parsed "protocol://[{opts}]host:port/abspath" name. protocol
// is kept only for round-tripping into Manager.Name; it does not affect
// dispatch since this package currently has exactly one remote back end.
type dfsPath struct {
	protocol string
	replicas int // 0 means "use the configured default"
	alias    string
	absPath  string
}

// localPathPrefix is the explicit scheme from §6's path grammar that opts a
// path into the local back end even though it carries a "://" separator.
const localPathPrefix = "local://"

// isLocalPath reports whether name refers to the local POSIX back end: no
// "://" at all (relative paths and bare absolute paths), or an explicit
// "local://" prefix per §6's grammar.
func isLocalPath(name string) bool {
	return !strings.Contains(name, "://") || strings.HasPrefix(name, localPathPrefix)
}

// stripLocalPrefix removes a leading "local://" so the local back end sees
// a plain filesystem path; names without the prefix pass through unchanged.
func stripLocalPrefix(name string) string {
	return strings.TrimPrefix(name, localPathPrefix)
}

// parseDFSPath splits a DFS name into its protocol, optional brace-bounded
// options, host:port alias, and absolute path. The grammar is:
//
//	protocol://[{opts}]host:port/abspath
//
// where opts is currently only "replica=N".
func parseDFSPath(name string) (dfsPath, error) {
	protoSep := strings.Index(name, "://")
	if protoSep < 0 {
		return dfsPath{}, fmt.Errorf("vfd: %q is not a dfs path", name)
	}
	p := dfsPath{protocol: name[:protoSep]}
	rest := name[protoSep+3:]

	if strings.HasPrefix(rest, "{") {
		end := strings.Index(rest, "}")
		if end < 0 {
			return dfsPath{}, fmt.Errorf("vfd: %q has an unterminated option block", name)
		}
		opts := rest[1:end]
		rest = rest[end+1:]
		for _, kv := range strings.Split(opts, ",") {
			if kv == "" {
				continue
			}
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return dfsPath{}, fmt.Errorf("vfd: %q has a malformed option %q", name, kv)
			}
			switch parts[0] {
			case "replica":
				n, err := strconv.Atoi(parts[1])
				if err != nil || n <= 0 {
					return dfsPath{}, fmt.Errorf("vfd: %q has an invalid replica option %q", name, parts[1])
				}
				p.replicas = n
			default:
				// Unknown options are ignored rather than rejected, per
				// §6's grammar ("extensible; unknown tokens ignored") and
				// §9's design note against silently "fixing" this leniency.
			}
		}
	}

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return dfsPath{}, fmt.Errorf("vfd: %q is missing an absolute path component", name)
	}
	p.alias = rest[:slash]
	p.absPath = rest[slash:]
	if p.alias == "" {
		return dfsPath{}, fmt.Errorf("vfd: %q is missing a host:port", name)
	}
	return p, nil
}
