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

// Package vfd implements a bounded pool of real kernel file descriptors
// multiplexed behind an unbounded number of logical virtual file
// descriptors (vfds). Callers open far more files than the process fd
// ulimit allows; the package transparently closes and reopens the
// least-recently-used physical descriptors to stay under budget.
package vfd

import (
	"os"
)

// Kind identifies which back end a slot's name is interpreted against.
type Kind uint8

const (
	KindLocal Kind = iota
	KindDFS
)

// State is a bitmask of lifecycle flags carried on a slot.
type State uint8

const (
	// StateTemporary marks a file created by OpenTemporary: it is unlinked
	// from its directory as soon as it is closed.
	StateTemporary State = 1 << iota

	// StateCloseAtEOXact marks a temporary file that additionally must be
	// closed (and so unlinked) at the end of the owning transaction even if
	// the caller never explicitly closes it.
	StateCloseAtEOXact
)

// sentinelFD marks a slot whose physical descriptor is not currently open,
// either because it was never opened or because it was reclaimed by LRU
// eviction pending a future reopen.
const sentinelFD = -1

// slot is one row of the vfd table. Index 0 is a permanent sentinel used to
// anchor the LRU ring and the freelist; it never represents a real file.
type slot struct {
	kind Kind

	// name is the full logical path (including protocol prefix for DFS
	// slots) this vfd was opened against. An empty name marks the slot
	// unused and available for allocation.
	name string

	openFlags int
	openMode  os.FileMode

	// realFD is the kernel descriptor backing a physically open local
	// slot, or sentinelFD when the slot is logically open but not
	// currently counted against the descriptor budget. It is a cache of
	// handle.rawFD(), kept alongside handle so RawFD doesn't need to probe
	// the handle on every call.
	realFD int

	// handle is the slot's physical resource (local *os.File or a dfs
	// reader/writer), non-nil iff the slot is physically open. One type
	// implements both the local and dfs cases behind the back-end-agnostic
	// handle interface declared in backend.go.
	handle handle

	// seekPos is the slot's logical file position. It is authoritative
	// across eviction and reopen: a reopened file is seeked back to this
	// offset before control returns to the caller.
	seekPos int64

	// seekPosUnknown is set after a failed read/write/seek and cleared by
	// the next successful seek; FileSeek's no-op elision in manager.go only
	// applies while the cached position is known-good.
	seekPosUnknown bool

	state       State
	createSubID int64 // subtransaction id that created this slot, for AtEOSubXact

	// LRU ring links, valid only while the slot is physically open. Index 0
	// doubles as the ring's anchor: lruLessRecent on slot 0 points at the
	// most-recently-used physically open slot and lruMoreRecent at the
	// least-recently-used one (the eviction victim).
	lruMoreRecent int
	lruLessRecent int

	// nextFree chains unused slots into a freelist rooted at table.freeHead.
	nextFree int
}

func (s *slot) isUsed() bool {
	return s.name != ""
}

func (s *slot) physicallyOpen() bool {
	return s.handle != nil
}

func (s *slot) isTemporary() bool {
	return s.state&StateTemporary != 0
}

func (s *slot) closeAtEOXact() bool {
	return s.state&StateCloseAtEOXact != 0
}

// reset clears a slot back to its unused zero value, ready to be pushed
// onto the freelist. The LRU and freelist link fields are left untouched;
// callers own those separately.
func (s *slot) reset() {
	s.kind = KindLocal
	s.name = ""
	s.openFlags = 0
	s.openMode = 0
	s.realFD = sentinelFD
	s.handle = nil
	s.seekPos = 0
	s.seekPosUnknown = false
	s.state = 0
	s.createSubID = 0
}
