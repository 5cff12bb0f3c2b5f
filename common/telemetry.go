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

package common

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// The default time buckets for latency metrics.
// The unit can however change for different units i.e. for one metric the unit could be microseconds and for another it could be milliseconds.
var defaultLatencyDistribution = metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 50000, 100000)

// MetricAttr represents the attributes associated with a metric.
type MetricAttr struct {
	Key, Value string
}

func (a *MetricAttr) String() string {
	return fmt.Sprintf("Key: %s, Value: %s", a.Key, a.Value)
}

// FSOpsErrorCategory groups a failing operation with the coarse-grained
// reason it failed, keeping error-count cardinality bounded.
type FSOpsErrorCategory struct {
	FSOps         string
	ErrorCategory string
}

// BudgetMetricHandle reports the state of the bounded real-descriptor
// pool: how many of the configured budget are currently open, how many
// logical vfds have been pushed out of a full LRU ring, and how often a
// slot had to be reopened against its backing path.
type BudgetMetricHandle interface {
	SlotsInUse(ctx context.Context, count int64)
	SlotsFree(ctx context.Context, count int64)
	AllocatedDescCount(ctx context.Context, count int64)
	EvictionCount(ctx context.Context, inc int64, attrs []MetricAttr)
	ReopenCount(ctx context.Context, inc int64, attrs []MetricAttr)
}

// OpsMetricHandle tracks the volume, latency and failure rate of the
// manager's public operations, keyed by operation name.
type OpsMetricHandle interface {
	OpsCount(ctx context.Context, inc int64, attrs []MetricAttr)
	OpsLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr)
	OpsErrorCount(ctx context.Context, inc int64, attrs FSOpsErrorCategory)
}

// DFSMetricHandle tracks the remote backend's connection lifecycle and
// the bytes it moves, independent of which logical vfd requested them.
type DFSMetricHandle interface {
	DFSConnectCount(ctx context.Context, inc int64, attrs []MetricAttr)
	DFSConnectLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr)
	DFSConnectRetryCount(ctx context.Context, inc int64, attrs []MetricAttr)
	DFSBytesTransferred(ctx context.Context, inc int64, attrs []MetricAttr)
}

type MetricHandle interface {
	BudgetMetricHandle
	OpsMetricHandle
	DFSMetricHandle
}
