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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_SentinelOnly(t *testing.T) {
	tbl := newTable()
	assert.Equal(t, 1, tbl.len())
	assert.Equal(t, sentinelFD, tbl.get(0).realFD)
	assert.False(t, tbl.get(0).isUsed())
}

func TestTable_AllocGrowsOnEmptyFreelist(t *testing.T) {
	tbl := newTable()

	idx := tbl.alloc()
	assert.Equal(t, 1, idx, "first alloc should hand out slot 1, never the sentinel")
	assert.Equal(t, minTableSize, tbl.len(), "first growth should jump straight to minTableSize")
	assert.Equal(t, sentinelFD, tbl.get(idx).realFD)
}

func TestTable_AllocNeverReturnsSentinel(t *testing.T) {
	tbl := newTable()
	for i := 0; i < minTableSize*2+5; i++ {
		idx := tbl.alloc()
		require.NotEqual(t, 0, idx)
	}
}

func TestTable_FreeReturnsToFreelistHead(t *testing.T) {
	tbl := newTable()
	a := tbl.alloc()
	b := tbl.alloc()
	tbl.get(a).name = "a"
	tbl.get(b).name = "b"

	tbl.free(a)
	assert.False(t, tbl.get(a).isUsed())

	// The freelist is LIFO off freeHead, so the next alloc reuses a.
	c := tbl.alloc()
	assert.Equal(t, a, c)
}

func TestTable_FreeClearsName(t *testing.T) {
	tbl := newTable()
	idx := tbl.alloc()
	s := tbl.get(idx)
	s.name = "/tmp/x"
	s.state = StateTemporary

	tbl.free(idx)

	assert.Equal(t, "", tbl.get(idx).name)
	assert.Equal(t, State(0), tbl.get(idx).state)
	assert.Equal(t, sentinelFD, tbl.get(idx).realFD)
}

func TestTable_GrowDoublesAndChainsFreelist(t *testing.T) {
	tbl := newTable()
	for i := 0; i < minTableSize-1; i++ {
		tbl.alloc()
	}
	// Every non-sentinel slot from the first growth is now allocated; one
	// more alloc should force a second growth to 2*minTableSize.
	before := tbl.len()
	idx := tbl.alloc()
	assert.Equal(t, before*2, tbl.len())
	assert.NotEqual(t, 0, idx)
}
