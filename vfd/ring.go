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

// ring is a circular doubly linked list of physically open slots, ordered
// least- to most-recently-used, threaded through the lruMoreRecent/
// lruLessRecent fields already present on each slot so no separate node
// allocation is needed. Slot 0 is the anchor: its lruLessRecent points at
// the most-recently-used member and its lruMoreRecent at the
// least-recently-used one (the next eviction candidate). An empty ring has
// both anchor links at 0.
type ring struct {
	t *table
}

func newRing(t *table) *ring {
	return &ring{t: t}
}

func (r *ring) isEmpty() bool {
	return r.t.slots[0].lruLessRecent == 0
}

// lruVictim returns the least-recently-used physically open slot, or 0 if
// the ring is empty.
func (r *ring) lruVictim() int {
	return r.t.slots[0].lruMoreRecent
}

// insert adds idx as the most-recently-used member. idx must not already be
// in the ring.
func (r *ring) insert(idx int) {
	head := &r.t.slots[0]
	mru := head.lruLessRecent

	s := &r.t.slots[idx]
	s.lruMoreRecent = 0
	s.lruLessRecent = mru
	r.t.slots[mru].lruMoreRecent = idx
	head.lruLessRecent = idx
}

// delete removes idx from the ring. idx must currently be a member.
func (r *ring) delete(idx int) {
	s := &r.t.slots[idx]
	more, less := s.lruMoreRecent, s.lruLessRecent
	r.t.slots[more].lruLessRecent = less
	r.t.slots[less].lruMoreRecent = more
	s.lruMoreRecent = 0
	s.lruLessRecent = 0
}

// touch moves idx to the most-recently-used end. idx must currently be a
// member.
func (r *ring) touch(idx int) {
	r.delete(idx)
	r.insert(idx)
}
