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

// AtEOSubXact handles every vfd marked CLOSE_AT_EOXACT whose createSubID is
// subID: on commit, reassigns it to parentSubID so it survives into the
// enclosing (sub)transaction; on abort, closes it (which unlinks it if it
// is also TEMPORARY). The same rule is applied to the allocated-descriptor
// registry. The registry sweep uses the "re-examine index i after a free"
// pattern: freeing swaps the last live entry into the freed slot, so
// advancing past i unconditionally would skip whatever got swapped in. The
// vfd table does not compact on free, so its sweep simply advances.
func (m *Manager) AtEOSubXact(subID int64, parentSubID int64, commit bool) {
	for i := 1; i < m.table.len(); i++ {
		s := m.table.get(i)
		if !s.isUsed() || !s.closeAtEOXact() || s.createSubID != subID {
			continue
		}
		if commit {
			s.createSubID = parentSubID
			continue
		}
		_ = m.closeSlot(i)
	}

	for i := 0; i < m.allocated.len(); {
		e := m.allocated.entryAt(i)
		if e.createSubID != subID {
			i++
			continue
		}
		if commit {
			m.allocated.entries[i].createSubID = parentSubID
			i++
			continue
		}
		m.allocated.freeAt(i)
		if cerr := closeEntry(e); cerr != nil {
			m.logger.Warn("vfd: closing allocated descriptor at subxact abort", "err", cerr)
		}
		// i is not advanced: freeAt swapped the former last entry into i.
	}
}

// AtEOXact closes every vfd marked CLOSE_AT_EOXACT and drains the
// allocated-descriptor registry, independent of whether the transaction
// committed or aborted: neither a temp file nor an allocated descriptor is
// guaranteed to survive past end of transaction either way.
func (m *Manager) AtEOXact() {
	for i := 1; i < m.table.len(); i++ {
		s := m.table.get(i)
		if !s.isUsed() {
			continue
		}
		if s.closeAtEOXact() {
			_ = m.closeSlot(i)
			continue
		}
		s.createSubID = 0
	}
	m.freeAllAllocated()
}

// AtXactCancel severs any half-written remote state ahead of normal abort
// cleanup by closing every physically-open DFS vfd. This runs before
// AtEOXact in the abort path; failures are demoted to warnings because
// abort cleanup must never itself fail loudly enough to block unwinding.
func (m *Manager) AtXactCancel() {
	for i := 1; i < m.table.len(); i++ {
		s := m.table.get(i)
		if !s.isUsed() || s.kind != KindDFS || !s.physicallyOpen() {
			continue
		}
		if err := s.handle.Close(); err != nil {
			m.logger.Warn("vfd: dfs close during xact cancel", "vfd", i, "name", s.name, "err", err)
		}
		s.handle = nil
	}
}

// AtProcExit closes every TEMPORARY vfd and drains the allocated-descriptor
// registry, best-effort: a failure on one slot does not stop the sweep
// over the rest.
func (m *Manager) AtProcExit() {
	for i := 1; i < m.table.len(); i++ {
		s := m.table.get(i)
		if s.isUsed() && s.isTemporary() {
			_ = m.closeSlot(i)
		}
	}
	m.freeAllAllocated()
	_ = m.endpoints.closeAll()
}

func (m *Manager) freeAllAllocated() {
	for m.allocated.len() > 0 {
		e := m.allocated.freeAt(0)
		if cerr := closeEntry(e); cerr != nil {
			m.logger.Warn("vfd: closing allocated descriptor", "err", cerr)
		}
	}
}
