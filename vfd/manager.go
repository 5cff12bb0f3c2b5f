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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/filecachedb/vfdcache/clock"
	"github.com/filecachedb/vfdcache/common"
)

// Manager owns every piece of process-wide state this package mutates: the
// vfd table, the LRU ring over its physically open local members, the
// accounting counter nfile, the allocated-descriptor registry, and the DFS
// endpoint cache. Exactly one Manager is expected per process; nothing here
// is safe for concurrent use from more than one goroutine at a time (see
// SPEC_FULL.md §5).
type Manager struct {
	cfg *cfg.Config

	table *table
	ring  *ring

	// nfile is the number of physically open local slots; it is the
	// quantity budgeted against maxSafeFds alongside allocated.len().
	nfile int

	allocated  *allocatedRegistry
	nextHandle int // next opaque handle AllocateFile/AllocateDir will hand out

	local backend
	dfs   backend

	endpoints *endpointCache

	maxSafeFds    int
	maxSafeFdsSet bool
	probeEnv      probeEnv

	clock   clockSource
	metrics common.MetricHandle
	logger  *slog.Logger

	tempSeqCounter int64
}

// NewManager constructs a Manager from c, running the fd-budget probe
// unless a test has pinned maxSafeFds via withMaxSafeFds. Matches the
// teacher's constructor pattern of applying functional Options after
// establishing defaults.
func NewManager(c *cfg.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:       c,
		table:     newTable(),
		allocated: newAllocatedRegistry(),
		clock:     clock.RealClock{},
		metrics:   common.NewNoopMetrics(),
		logger:    slog.Default(),
		probeEnv:  newProbeEnv(),
	}
	m.ring = newRing(m.table)
	m.nextHandle = 1

	for _, opt := range opts {
		opt(m)
	}

	m.local = newLocalBackend()
	m.endpoints = newEndpointCache(&c.DFS, m.clock, m.metrics)
	m.dfs = newDFSBackend(m.endpoints, &c.DFS)

	for _, opt := range opts {
		opt(m)
	}

	if !m.maxSafeFdsSet {
		n, err := initFileAccess(m.probeEnv, c)
		if err != nil {
			return nil, err
		}
		m.maxSafeFds = n
	}

	return m, nil
}

// backendFor returns the back end a slot or a bare path name should
// dispatch through.
func (m *Manager) backendFor(isDFS bool) backend {
	if isDFS {
		return m.dfs
	}
	return m.local
}

func (m *Manager) recordOp(ctx context.Context, op string, start time.Time, backendName string, err error) {
	attrs := []common.MetricAttr{{Key: "op", Value: op}, {Key: common.BackendKey, Value: backendName}}
	m.metrics.OpsCount(ctx, 1, attrs)
	m.metrics.OpsLatency(ctx, m.clock.Now().Sub(start), attrs)
	if err != nil {
		m.metrics.OpsErrorCount(ctx, 1, common.FSOpsErrorCategory{FSOps: op, ErrorCategory: errCategory(err)})
	}
}

func errCategory(err error) string {
	if err == nil {
		return ""
	}
	if isResourceExhausted(err) {
		return "resource_exhausted"
	}
	if os.IsNotExist(err) {
		return "not_found"
	}
	return "other"
}

func (m *Manager) budgetInUse() int {
	return m.nfile + m.allocated.len()
}

// ensureHeadroom calls ReleaseLru in a loop until nfile+allocated is
// strictly under maxSafeFds or the ring runs dry, matching §5's "before any
// new real descriptor is acquired" rule.
func (m *Manager) ensureHeadroom(ctx context.Context) error {
	for m.budgetInUse() >= m.maxSafeFds {
		released, err := m.releaseLru(ctx)
		if err != nil {
			return err
		}
		if !released {
			return nil
		}
	}
	return nil
}

// releaseLru evicts the least-recently-used physically open local slot,
// saving its logical seek position so a later Reopen can restore it.
// Reports released=false when the ring is empty ("nothing to release" per
// §4.C step 1), which is not itself an error.
func (m *Manager) releaseLru(ctx context.Context) (released bool, err error) {
	if m.ring.isEmpty() {
		return false, nil
	}
	idx := m.ring.lruVictim()
	s := m.table.get(idx)

	pos, err := m.tellSlot(s)
	if err != nil {
		return false, err
	}
	if pos < 0 {
		return false, fmt.Errorf("%w: negative seek position saved for vfd %d", ErrInvariant, idx)
	}
	s.seekPos = pos

	if err := s.handle.Close(); err != nil {
		return false, err
	}

	m.nfile--
	s.realFD = sentinelFD
	s.handle = nil
	m.ring.delete(idx)

	m.metrics.EvictionCount(ctx, 1, []common.MetricAttr{{Key: common.BackendKey, Value: common.BackendLocal}})
	m.metrics.SlotsInUse(ctx, int64(m.nfile))
	m.logger.Debug("vfd: released lru slot", "vfd", idx, "name", s.name)
	return true, nil
}

func (m *Manager) tellSlot(s *slot) (int64, error) {
	return s.handle.seek(0, io.SeekCurrent)
}

// reopen transitions a logically-open, physically-closed slot back to
// physically open: it frees headroom, opens through the slot's back end,
// restores the saved seek position, and (for local slots only) inserts the
// slot back into the LRU ring.
func (m *Manager) reopen(ctx context.Context, idx int, s *slot) error {
	if err := m.ensureHeadroom(ctx); err != nil {
		return err
	}

	intent := openIntent{flags: s.openFlags, mode: s.openMode}
	writing := s.openFlags&(os.O_WRONLY|os.O_RDWR) != 0

	h, err := m.openWithRetry(ctx, s.kind == KindDFS, s.name, intent)
	if err != nil {
		return err
	}
	s.handle = h

	if s.kind == KindDFS {
		if writing {
			// Write opens are append-only; the restored handle's length
			// must equal seekPos exactly or the slot's bookkeeping has
			// drifted from the file on disk.
			length, lerr := m.sizeOfOpenSlot(ctx, s)
			if lerr != nil {
				_ = h.Close()
				s.handle = nil
				return lerr
			}
			if length != s.seekPos {
				_ = h.Close()
				s.handle = nil
				return fmt.Errorf("%w: reopened length %d, want %d", ErrInvariant, length, s.seekPos)
			}
		} else if s.seekPos != 0 {
			if _, err := h.seek(s.seekPos, io.SeekStart); err != nil {
				_ = h.Close()
				s.handle = nil
				return err
			}
		}
		m.realSlotOpened(idx, s, false)
	} else {
		if s.seekPos != 0 {
			if _, err := h.seek(s.seekPos, io.SeekStart); err != nil {
				_ = h.Close()
				s.handle = nil
				return err
			}
		}
		m.realSlotOpened(idx, s, true)
	}

	m.metrics.ReopenCount(ctx, 1, []common.MetricAttr{{Key: common.BackendKey, Value: backendName(s.kind)}})
	return nil
}

func backendName(k Kind) string {
	if k == KindDFS {
		return common.BackendDFS
	}
	return common.BackendLocal
}

// realSlotOpened records the post-open accounting shared by fresh opens and
// reopens: nfile increments for local slots only (DFS handles bypass the
// descriptor budget per §3 invariant 2), and only local slots join the LRU
// ring.
func (m *Manager) realSlotOpened(idx int, s *slot, local bool) {
	if !local {
		return
	}
	if fd, ok := s.handle.rawFD(); ok {
		s.realFD = fd
	}
	m.nfile++
	m.ring.insert(idx)
	m.metrics.SlotsInUse(context.Background(), int64(m.nfile))
}

// openWithRetry opens path through the appropriate back end, retrying once
// after ReleaseLru on EMFILE/ENFILE.
func (m *Manager) openWithRetry(ctx context.Context, isDFS bool, path string, intent openIntent) (handle, error) {
	b := m.backendFor(isDFS)
	h, err := b.open(ctx, path, intent)
	if err != nil && isResourceExhausted(err) {
		if _, relErr := m.releaseLru(ctx); relErr != nil {
			return nil, relErr
		}
		h, err = b.open(ctx, path, intent)
	}
	return h, err
}

// fileAccess is the preamble every data operation (read/write/seek/sync/
// truncate) runs first: reopen a physically-closed slot, or touch a local
// slot's LRU recency. DFS slots are never reordered because they are not
// ring members (§4.C FileAccess).
func (m *Manager) fileAccess(ctx context.Context, idx int, s *slot) error {
	if !s.physicallyOpen() {
		return m.reopen(ctx, idx, s)
	}
	if s.kind == KindLocal {
		m.ring.touch(idx)
	}
	return nil
}

// lookup resolves vfd to its slot, validating it is currently logically
// open.
func (m *Manager) lookup(vfd int) (*slot, error) {
	if vfd <= 0 || vfd >= m.table.len() {
		return nil, ErrInvalidVFD
	}
	s := m.table.get(vfd)
	if !s.isUsed() {
		return nil, ErrInvalidVFD
	}
	return s, nil
}

// PathNameOpen opens path (local or dfs per §6's grammar) and returns a new
// vfd. flags/mode are the parameters a future Reopen will reuse, with the
// one-shot bits (O_CREAT|O_TRUNC|O_EXCL) masked out first per §3.
func (m *Manager) PathNameOpen(ctx context.Context, path string, flags int, mode os.FileMode) (vfd int, err error) {
	start := m.clock.Now()
	isDFS := !isLocalPath(path)
	defer func() { m.recordOp(ctx, common.OpPathNameOpen, start, backendNameForPath(isDFS), err) }()

	if err := m.ensureHeadroom(ctx); err != nil {
		return 0, err
	}

	h, err := m.openWithRetry(ctx, isDFS, path, openIntent{flags: flags, mode: mode})
	if err != nil {
		return 0, err
	}

	idx := m.table.alloc()
	s := m.table.get(idx)
	s.kind = KindLocal
	if isDFS {
		s.kind = KindDFS
	}
	s.name = path
	s.openFlags = flags &^ (os.O_CREATE | os.O_TRUNC | os.O_EXCL)
	if isDFS && s.openFlags&(os.O_WRONLY|os.O_RDWR) != 0 {
		// DFS write opens are append-only; a reopen must request append
		// even if the original call only asked for O_TRUNC, per §4.E.
		s.openFlags |= os.O_APPEND
	}
	s.openMode = mode
	s.handle = h
	s.seekPos = 0

	m.realSlotOpened(idx, s, !isDFS)
	return idx, nil
}

func backendNameForPath(isDFS bool) string {
	if isDFS {
		return common.BackendDFS
	}
	return common.BackendLocal
}

// FileClose releases vfd's real descriptor (if any), unlinks the backing
// file when it was opened TEMPORARY, and returns the slot to the freelist.
func (m *Manager) FileClose(ctx context.Context, vfd int) (err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileClose, start, "", err) }()
	return m.closeSlot(vfd)
}

// closeSlot is FileClose's implementation, factored out so the transaction
// hooks in xact.go can reuse it without going through the metrics/logging
// wrapper per call.
func (m *Manager) closeSlot(vfd int) error {
	s, err := m.lookup(vfd)
	if err != nil {
		return err
	}

	isDFS := s.kind == KindDFS
	if s.physicallyOpen() {
		if !isDFS {
			// DFS slots never counted against nfile or joined the ring.
			m.nfile--
			m.ring.delete(vfd)
		}
		if cerr := s.handle.Close(); cerr != nil {
			if isDFS {
				m.logger.Warn("vfd: dfs close failed", "vfd", vfd, "name", s.name, "err", cerr)
			} else {
				return cerr
			}
		}
		s.handle = nil
		s.realFD = sentinelFD
	}

	// Clear TEMPORARY before unlink so an interrupt between the two can
	// never leave the bit set on a slot whose file is already gone.
	wasTemporary := s.isTemporary()
	name := s.name
	s.state &^= StateTemporary

	m.table.free(vfd)

	if wasTemporary {
		b := m.backendFor(isDFS)
		if uerr := b.remove(context.Background(), name, false); uerr != nil && !os.IsNotExist(uerr) {
			m.logger.Warn("vfd: temp file unlink failed", "name", name, "err", uerr)
		}
	}
	return nil
}

// FileRead reads into p starting at vfd's current logical position,
// advancing seekPos by the number of bytes transferred. A failed read
// leaves seekPos untouched and sets seekPosUnknown, so the next FileSeek
// on an open slot goes to the backing store instead of being elided.
func (m *Manager) FileRead(ctx context.Context, vfd int, p []byte) (n int, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileRead, start, "", err) }()

	s, err := m.lookup(vfd)
	if err != nil {
		return 0, err
	}
	if err := m.fileAccess(ctx, vfd, s); err != nil {
		return 0, err
	}

	n, err = s.handle.Read(p)
	if err != nil {
		s.seekPosUnknown = true
		return n, err
	}
	s.seekPos += int64(n)
	return n, nil
}

// FileWrite writes p at vfd's current logical position. A short local
// write with errno unset is synthesized as ENOSPC per §4.D; failures mark
// seekPos unknown.
func (m *Manager) FileWrite(ctx context.Context, vfd int, p []byte) (n int, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileWrite, start, "", err) }()

	s, err := m.lookup(vfd)
	if err != nil {
		return 0, err
	}
	if err := m.fileAccess(ctx, vfd, s); err != nil {
		return 0, err
	}

	n, err = s.handle.Write(p)
	if err == nil && n < len(p) {
		err = fmt.Errorf("vfd: short write (%d of %d bytes): %w", n, len(p), syscallENOSPC)
	}
	if err != nil {
		s.seekPosUnknown = true
		return n, err
	}
	s.seekPos += int64(n)
	return n, nil
}

// FileSeek repositions vfd's logical cursor. Per §4.D, SEEK_SET/SEEK_CUR
// update the cached position without forcing a physical open when the
// slot isn't already open; SEEK_END always forces one (the size is only
// knowable from the backing store).
func (m *Manager) FileSeek(ctx context.Context, vfd int, offset int64, whence int) (pos int64, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileSeek, start, "", err) }()

	s, err := m.lookup(vfd)
	if err != nil {
		return 0, err
	}

	if whence == io.SeekEnd {
		if err := m.fileAccess(ctx, vfd, s); err != nil {
			return 0, err
		}
		pos, err = s.handle.seek(offset, whence)
		if err != nil {
			s.seekPosUnknown = true
			return 0, err
		}
		s.seekPos = pos
		s.seekPosUnknown = false
		return pos, nil
	}

	if s.physicallyOpen() {
		noop := (whence == io.SeekStart && offset == s.seekPos && !s.seekPosUnknown) ||
			(whence == io.SeekCurrent && offset == 0 && !s.seekPosUnknown)
		if !noop {
			pos, err = s.handle.seek(offset, whence)
			if err != nil {
				s.seekPosUnknown = true
				return 0, err
			}
			s.seekPos = pos
			s.seekPosUnknown = false
			if s.kind == KindLocal {
				m.ring.touch(vfd)
			}
			return pos, nil
		}
		return s.seekPos, nil
	}

	switch whence {
	case io.SeekStart:
		s.seekPos = offset
	case io.SeekCurrent:
		s.seekPos += offset
	}
	s.seekPosUnknown = false
	return s.seekPos, nil
}

// FileSync flushes vfd's dirty data through its back end. On a local slot
// it is a no-op when Fsync.Enabled is false; otherwise it calls
// os.File.Sync (fsync(2)) whatever Fsync.Method names. On a DFS slot it
// flushes the writer.
func (m *Manager) FileSync(ctx context.Context, vfd int) (err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileSync, start, "", err) }()

	s, err := m.lookup(vfd)
	if err != nil {
		return err
	}
	if s.kind == KindLocal && !m.cfg.Fsync.Enabled {
		return nil
	}
	if err := m.fileAccess(ctx, vfd, s); err != nil {
		return err
	}
	return s.handle.sync()
}

// FileTruncate truncates vfd to offset. seekPos becomes unknown afterward
// (the physical cursor's relationship to the new length is unspecified by
// POSIX after ftruncate).
func (m *Manager) FileTruncate(ctx context.Context, vfd int, offset int64) (err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileTruncate, start, "", err) }()

	s, err := m.lookup(vfd)
	if err != nil {
		return err
	}
	if err := m.fileAccess(ctx, vfd, s); err != nil {
		return err
	}
	err = s.handle.truncate(offset)
	s.seekPosUnknown = true
	return err
}

// RemovePath deletes path (or recursively removes a directory tree when
// recursive is set) through whichever back end path dispatches to.
func (m *Manager) RemovePath(ctx context.Context, path string, recursive bool) (err error) {
	start := m.clock.Now()
	isDFS := !isLocalPath(path)
	defer func() { m.recordOp(ctx, common.OpRemovePath, start, backendNameForPath(isDFS), err) }()
	return m.backendFor(isDFS).remove(ctx, path, recursive)
}

// MakeDirectory creates path as a directory with the given mode.
func (m *Manager) MakeDirectory(ctx context.Context, path string, mode os.FileMode) (err error) {
	start := m.clock.Now()
	isDFS := !isLocalPath(path)
	defer func() { m.recordOp(ctx, common.OpMakeDirectory, start, backendNameForPath(isDFS), err) }()
	return m.backendFor(isDFS).mkdir(ctx, path, mode)
}

// RawFD exposes vfd's current kernel descriptor, for callers that must pass
// one to an API outside this package. Only meaningful while the slot is
// physically open on the local back end.
func (m *Manager) RawFD(vfd int) (fd int, ok bool) {
	s, err := m.lookup(vfd)
	if err != nil || s.kind != KindLocal || s.realFD == sentinelFD {
		return 0, false
	}
	return s.realFD, true
}

// OpenFlags returns the flags vfd was opened (or will be reopened) with.
func (m *Manager) OpenFlags(vfd int) (int, error) {
	s, err := m.lookup(vfd)
	if err != nil {
		return 0, err
	}
	return s.openFlags, nil
}

// OpenMode returns the mode vfd was opened (or will be reopened) with.
func (m *Manager) OpenMode(vfd int) (os.FileMode, error) {
	s, err := m.lookup(vfd)
	if err != nil {
		return 0, err
	}
	return s.openMode, nil
}

// Name returns vfd's logical path.
func (m *Manager) Name(vfd int) (string, error) {
	s, err := m.lookup(vfd)
	if err != nil {
		return "", err
	}
	return s.name, nil
}

// Size stats vfd's backing file without disturbing seekPos.
func (m *Manager) Size(ctx context.Context, vfd int) (int64, error) {
	s, err := m.lookup(vfd)
	if err != nil {
		return 0, err
	}
	return m.sizeOfOpenSlot(ctx, s)
}

func (m *Manager) sizeOfOpenSlot(ctx context.Context, s *slot) (int64, error) {
	info, err := m.backendFor(s.kind == KindDFS).stat(ctx, s.name)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Prealloc reserves space for vfd's backing local file up to size bytes via
// fallocate(2) in its default mode, so a file shorter than size grows to
// size; seekPos is not changed. DFS slots have no
// fallocate-equivalent and always return ErrDFSPrealloc.
func (m *Manager) Prealloc(ctx context.Context, vfd int, size int64) (err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFilePrealloc, start, "", err) }()

	s, err := m.lookup(vfd)
	if err != nil {
		return err
	}
	if s.kind == KindDFS {
		return ErrDFSPrealloc
	}
	if err := m.fileAccess(ctx, vfd, s); err != nil {
		return err
	}
	fd, ok := s.handle.rawFD()
	if !ok {
		return ErrInvariant
	}
	return preallocate(fd, size)
}

// MaxSafeFds returns the descriptor budget computed (or pinned) at
// construction time.
func (m *Manager) MaxSafeFds() int {
	return m.maxSafeFds
}
