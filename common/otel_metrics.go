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
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FSOpKey annotates the vfd manager operation processed.
	FSOpKey = "vfd_op"

	// FSErrCategoryKey reduces the cardinality of errors by grouping them together.
	FSErrCategoryKey = "error_category"

	// ReadTypeKey annotates an I/O operation with its access pattern - Sequential/Random.
	ReadTypeKey = "read_type"

	// BackendKey annotates an operation with the backend that served it - local/dfs.
	BackendKey = "backend"
)

var (
	budgetMeter = otel.Meter("vfd_budget")
	opsMeter    = otel.Meter("vfd_ops")
	dfsMeter    = otel.Meter("vfd_dfs")

	attrSetCache sync.Map
)

// attrOption turns a slice of loosely-typed metric attributes into a
// cached otel MeasurementOption, so repeated calls with the same
// attribute values do not re-allocate an attribute.Set every time.
func attrOption(attrs []MetricAttr) metric.MeasurementOption {
	var key strings.Builder
	for _, a := range attrs {
		key.WriteString(a.Key)
		key.WriteByte('=')
		key.WriteString(a.Value)
		key.WriteByte(';')
	}
	cacheKey := key.String()

	if v, ok := attrSetCache.Load(cacheKey); ok {
		return v.(metric.MeasurementOption)
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kvs = append(kvs, attribute.String(a.Key, a.Value))
	}
	opt := metric.WithAttributeSet(attribute.NewSet(kvs...))
	v, _ := attrSetCache.LoadOrStore(cacheKey, opt)
	return v.(metric.MeasurementOption)
}

func errorCategoryOption(attr FSOpsErrorCategory) metric.MeasurementOption {
	return attrOption([]MetricAttr{{Key: FSOpKey, Value: attr.FSOps}, {Key: FSErrCategoryKey, Value: attr.ErrorCategory}})
}

// otelMetrics maintains the list of all metrics computed by the vfd manager.
type otelMetrics struct {
	slotsInUseAtomic *atomic.Int64
	slotsFreeAtomic  *atomic.Int64
	allocDescAtomic  *atomic.Int64
	evictionCount    metric.Int64Counter
	reopenCount      metric.Int64Counter

	opsCount      metric.Int64Counter
	opsErrorCount metric.Int64Counter
	opsLatency    metric.Float64Histogram

	dfsConnectCount      metric.Int64Counter
	dfsConnectLatency    metric.Float64Histogram
	dfsConnectRetryCount metric.Int64Counter
	dfsBytesTransferred  metric.Int64Counter
}

func (o *otelMetrics) SlotsInUse(_ context.Context, count int64) { o.slotsInUseAtomic.Store(count) }
func (o *otelMetrics) SlotsFree(_ context.Context, count int64)  { o.slotsFreeAtomic.Store(count) }
func (o *otelMetrics) AllocatedDescCount(_ context.Context, count int64) {
	o.allocDescAtomic.Store(count)
}

func (o *otelMetrics) EvictionCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.evictionCount.Add(ctx, inc, attrOption(attrs))
}

func (o *otelMetrics) ReopenCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.reopenCount.Add(ctx, inc, attrOption(attrs))
}

func (o *otelMetrics) OpsCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.opsCount.Add(ctx, inc, attrOption(attrs))
}

func (o *otelMetrics) OpsLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr) {
	o.opsLatency.Record(ctx, float64(latency.Microseconds()), attrOption(attrs))
}

func (o *otelMetrics) OpsErrorCount(ctx context.Context, inc int64, attrs FSOpsErrorCategory) {
	o.opsErrorCount.Add(ctx, inc, errorCategoryOption(attrs))
}

func (o *otelMetrics) DFSConnectCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.dfsConnectCount.Add(ctx, inc, attrOption(attrs))
}

func (o *otelMetrics) DFSConnectLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr) {
	o.dfsConnectLatency.Record(ctx, float64(latency.Milliseconds()), attrOption(attrs))
}

func (o *otelMetrics) DFSConnectRetryCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.dfsConnectRetryCount.Add(ctx, inc, attrOption(attrs))
}

func (o *otelMetrics) DFSBytesTransferred(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.dfsBytesTransferred.Add(ctx, inc, attrOption(attrs))
}

func NewOTelMetrics() (MetricHandle, error) {
	var slotsInUseAtomic, slotsFreeAtomic, allocDescAtomic atomic.Int64

	_, err1 := budgetMeter.Int64ObservableGauge("vfd/slots_in_use",
		metric.WithDescription("The number of real descriptors currently held open by the vfd manager."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(slotsInUseAtomic.Load())
			return nil
		}))
	_, err2 := budgetMeter.Int64ObservableGauge("vfd/slots_free",
		metric.WithDescription("The number of real descriptors still available within the configured budget."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(slotsFreeAtomic.Load())
			return nil
		}))
	_, err3 := budgetMeter.Int64ObservableGauge("vfd/allocated_desc_count",
		metric.WithDescription("The number of entries in use in the allocated-descriptor registry."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(allocDescAtomic.Load())
			return nil
		}))
	evictionCount, err4 := budgetMeter.Int64Counter("vfd/eviction_count",
		metric.WithDescription("The cumulative number of times a vfd was pushed out of the LRU ring to stay within the real-descriptor budget."))
	reopenCount, err5 := budgetMeter.Int64Counter("vfd/reopen_count",
		metric.WithDescription("The cumulative number of times an evicted vfd was reopened against its backing path to service a later request."))

	opsCount, err6 := opsMeter.Int64Counter("vfd/ops_count", metric.WithDescription("The cumulative number of vfd manager operations processed."))
	opsLatency, err7 := opsMeter.Float64Histogram("vfd/ops_latency",
		metric.WithDescription("The cumulative distribution of vfd manager operation latencies."),
		metric.WithUnit("us"), defaultLatencyDistribution)
	opsErrorCount, err8 := opsMeter.Int64Counter("vfd/ops_error_count", metric.WithDescription("The cumulative number of errors returned by vfd manager operations."))

	dfsConnectCount, err9 := dfsMeter.Int64Counter("vfd/dfs_connect_count", metric.WithDescription("The cumulative number of DFS namenode connection attempts."))
	dfsConnectLatency, err10 := dfsMeter.Float64Histogram("vfd/dfs_connect_latency",
		metric.WithDescription("The cumulative distribution of DFS namenode connection latencies."), metric.WithUnit("ms"))
	dfsConnectRetryCount, err11 := dfsMeter.Int64Counter("vfd/dfs_connect_retry_count", metric.WithDescription("The cumulative number of DFS connection retries after a transient failure."))
	dfsBytesTransferred, err12 := dfsMeter.Int64Counter("vfd/dfs_bytes_transferred",
		metric.WithDescription("The cumulative number of bytes read from or written to the DFS backend."), metric.WithUnit("By"))

	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7, err8, err9, err10, err11, err12); err != nil {
		return nil, err
	}

	return &otelMetrics{
		slotsInUseAtomic:     &slotsInUseAtomic,
		slotsFreeAtomic:      &slotsFreeAtomic,
		allocDescAtomic:      &allocDescAtomic,
		evictionCount:        evictionCount,
		reopenCount:          reopenCount,
		opsCount:             opsCount,
		opsErrorCount:        opsErrorCount,
		opsLatency:           opsLatency,
		dfsConnectCount:      dfsConnectCount,
		dfsConnectLatency:    dfsConnectLatency,
		dfsConnectRetryCount: dfsConnectRetryCount,
		dfsBytesTransferred:  dfsBytesTransferred,
	}, nil
}
