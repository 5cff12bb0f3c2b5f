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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupOTel(t *testing.T) (*otelMetrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	h, err := NewOTelMetrics()
	require.NoError(t, err)
	return h.(*otelMetrics), reader
}

func collect(t *testing.T, rd *metric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, rd.Collect(context.Background(), &rm))
	return rm
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				return sum.DataPoints[0].Value, true
			}
		}
	}
	return 0, false
}

func gaugeValue(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if g, ok := m.Data.(metricdata.Gauge[int64]); ok && len(g.DataPoints) > 0 {
				return g.DataPoints[0].Value, true
			}
		}
	}
	return 0, false
}

func TestOTelMetrics_OpsCountAndErrors(t *testing.T) {
	ctx := context.Background()
	m, reader := setupOTel(t)

	m.OpsCount(ctx, 3, []MetricAttr{{Key: FSOpKey, Value: OpFileRead}})
	m.OpsErrorCount(ctx, 1, FSOpsErrorCategory{FSOps: OpFileRead, ErrorCategory: "io_error"})

	rm := collect(t, reader)
	count, ok := sumValue(t, rm, "vfd/ops_count")
	require.True(t, ok)
	require.EqualValues(t, 3, count)

	errs, ok := sumValue(t, rm, "vfd/ops_error_count")
	require.True(t, ok)
	require.EqualValues(t, 1, errs)
}

func TestOTelMetrics_BudgetGauges(t *testing.T) {
	ctx := context.Background()
	m, reader := setupOTel(t)

	m.SlotsInUse(ctx, 7)
	m.SlotsFree(ctx, 93)
	m.AllocatedDescCount(ctx, 2)

	rm := collect(t, reader)
	inUse, ok := gaugeValue(t, rm, "vfd/slots_in_use")
	require.True(t, ok)
	require.EqualValues(t, 7, inUse)

	free, ok := gaugeValue(t, rm, "vfd/slots_free")
	require.True(t, ok)
	require.EqualValues(t, 93, free)

	allocated, ok := gaugeValue(t, rm, "vfd/allocated_desc_count")
	require.True(t, ok)
	require.EqualValues(t, 2, allocated)
}

func TestOTelMetrics_EvictionAndReopenCounters(t *testing.T) {
	ctx := context.Background()
	m, reader := setupOTel(t)

	m.EvictionCount(ctx, 1, []MetricAttr{{Key: BackendKey, Value: BackendLocal}})
	m.ReopenCount(ctx, 1, []MetricAttr{{Key: BackendKey, Value: BackendLocal}})

	rm := collect(t, reader)
	evictions, ok := sumValue(t, rm, "vfd/eviction_count")
	require.True(t, ok)
	require.EqualValues(t, 1, evictions)

	reopens, ok := sumValue(t, rm, "vfd/reopen_count")
	require.True(t, ok)
	require.EqualValues(t, 1, reopens)
}

func TestOTelMetrics_DFSConnectMetrics(t *testing.T) {
	ctx := context.Background()
	m, reader := setupOTel(t)

	m.DFSConnectCount(ctx, 1, []MetricAttr{{Key: BackendKey, Value: BackendDFS}})
	m.DFSConnectRetryCount(ctx, 2, []MetricAttr{{Key: BackendKey, Value: BackendDFS}})
	m.DFSConnectLatency(ctx, 150*time.Millisecond, []MetricAttr{{Key: BackendKey, Value: BackendDFS}})
	m.DFSBytesTransferred(ctx, 4096, []MetricAttr{{Key: ReadTypeKey, Value: ReadTypeSequential}})

	rm := collect(t, reader)
	connects, ok := sumValue(t, rm, "vfd/dfs_connect_count")
	require.True(t, ok)
	require.EqualValues(t, 1, connects)

	retries, ok := sumValue(t, rm, "vfd/dfs_connect_retry_count")
	require.True(t, ok)
	require.EqualValues(t, 2, retries)

	bytes, ok := sumValue(t, rm, "vfd/dfs_bytes_transferred")
	require.True(t, ok)
	require.EqualValues(t, 4096, bytes)
}

func TestAttrOption_CachesByAttributeValues(t *testing.T) {
	a := attrOption([]MetricAttr{{Key: BackendKey, Value: BackendLocal}})
	b := attrOption([]MetricAttr{{Key: BackendKey, Value: BackendLocal}})
	c := attrOption([]MetricAttr{{Key: BackendKey, Value: BackendDFS}})

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
