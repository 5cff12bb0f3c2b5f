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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricAttr_String(t *testing.T) {
	a := MetricAttr{Key: BackendKey, Value: BackendDFS}
	assert.Equal(t, "Key: backend, Value: dfs", a.String())
}

type evictionRecord struct {
	inc   int64
	attrs []MetricAttr
}

type fakeMetricHandle struct {
	noopMetrics
	evictions []evictionRecord
}

func (f *fakeMetricHandle) EvictionCount(_ context.Context, inc int64, attrs []MetricAttr) {
	f.evictions = append(f.evictions, evictionRecord{inc: inc, attrs: attrs})
}

func TestMetricHandle_SatisfiesBudgetInterface(t *testing.T) {
	var h MetricHandle = &fakeMetricHandle{}
	h.EvictionCount(context.Background(), 1, []MetricAttr{{Key: BackendKey, Value: BackendLocal}})

	fm := h.(*fakeMetricHandle)
	require.Len(t, fm.evictions, 1)
	assert.Equal(t, int64(1), fm.evictions[0].inc)
	assert.Equal(t, BackendLocal, fm.evictions[0].attrs[0].Value)
}
