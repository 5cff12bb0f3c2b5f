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
)

func allocN(tbl *table, n int) []int {
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = tbl.alloc()
		tbl.get(idxs[i]).name = "x"
	}
	return idxs
}

func TestRing_EmptyInitially(t *testing.T) {
	tbl := newTable()
	r := newRing(tbl)
	assert.True(t, r.isEmpty())
	assert.Equal(t, 0, r.lruVictim())
}

func TestRing_InsertOrdersLeastToMostRecent(t *testing.T) {
	tbl := newTable()
	r := newRing(tbl)
	idxs := allocN(tbl, 3)

	for _, idx := range idxs {
		r.insert(idx)
	}

	assert.False(t, r.isEmpty())
	assert.Equal(t, idxs[0], r.lruVictim(), "oldest insert should be the eviction victim")
}

func TestRing_TouchMovesToMostRecentEnd(t *testing.T) {
	tbl := newTable()
	r := newRing(tbl)
	idxs := allocN(tbl, 3)
	for _, idx := range idxs {
		r.insert(idx)
	}

	r.touch(idxs[0])

	assert.Equal(t, idxs[1], r.lruVictim(), "touching the former victim should promote the next-oldest")
}

func TestRing_DeleteUnlinksMember(t *testing.T) {
	tbl := newTable()
	r := newRing(tbl)
	idxs := allocN(tbl, 3)
	for _, idx := range idxs {
		r.insert(idx)
	}

	r.delete(idxs[1])

	assert.Equal(t, idxs[0], r.lruVictim())
	// Deleting the only remaining two members one at a time should empty
	// the ring without leaving stale links.
	r.delete(idxs[0])
	r.delete(idxs[2])
	assert.True(t, r.isEmpty())
}

func TestRing_TouchRepeatedlyOnSoleMemberIsStable(t *testing.T) {
	tbl := newTable()
	r := newRing(tbl)
	idxs := allocN(tbl, 1)
	r.insert(idxs[0])

	r.touch(idxs[0])
	r.touch(idxs[0])

	assert.Equal(t, idxs[0], r.lruVictim())
}
