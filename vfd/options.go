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
	"log/slog"

	"github.com/filecachedb/vfdcache/common"
)

// Option customizes a Manager at construction time.
type Option func(*Manager)

// WithClock overrides the clock used for metrics timing and DFS connect
// backoff. Defaults to a real wall clock.
func WithClock(c clockSource) Option {
	return func(m *Manager) { m.clock = c }
}

// WithMetrics overrides the metrics sink. Defaults to a no-op handle.
func WithMetrics(h common.MetricHandle) Option {
	return func(m *Manager) { m.metrics = h }
}

// WithLogger overrides the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// withProbeEnv overrides fd-budget probing; used by tests to avoid
// depending on the real process descriptor table.
func withProbeEnv(env probeEnv) Option {
	return func(m *Manager) { m.probeEnv = env }
}

// withMaxSafeFds skips probing entirely and pins the budget, for tests that
// want deterministic eviction behavior without an OS-level fd probe.
func withMaxSafeFds(n int) Option {
	return func(m *Manager) { m.maxSafeFds = n; m.maxSafeFdsSet = true }
}

// withLocalBackend overrides the local back end; used by tests to fake
// filesystem failures without touching the real filesystem.
func withLocalBackend(b backend) Option {
	return func(m *Manager) { m.local = b }
}

// withDFSBackend overrides the dfs back end; used by tests to fake a
// remote cluster.
func withDFSBackend(b backend) Option {
	return func(m *Manager) { m.dfs = b }
}
