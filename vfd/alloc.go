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
	"io"
	"os"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/filecachedb/vfdcache/common"
)

// allocatedKind distinguishes the three things the allocated-descriptor
// registry hands out.
type allocatedKind uint8

const (
	allocatedFile allocatedKind = iota
	allocatedLocalDir
	allocatedRemoteDir
)

// remoteDirListing is an immutable snapshot of one listdir call, taken up
// front because the dfs back end has no directory-stream primitive: the
// full listing plus a cursor stands in for one. basePath is kept so a
// later path-info call on an entry can be issued without re-deriving the
// directory from the caller.
type remoteDirListing struct {
	basePath string
	names    []string
	cursor   int
}

// allocatedEntry is one outstanding descriptor handed out by AllocateFile
// or AllocateDir. Unlike a vfd slot, these are never closed and reopened
// under budget pressure: they count permanently against maxSafeFds for as
// long as they're held, which is why the registry has a small fixed
// capacity (cfg.MaxAllocatedDescriptors) allocated up front by
// newAllocatedRegistry.
type allocatedEntry struct {
	kind        allocatedKind
	file        *os.File
	localDir    *os.File
	remoteDir   *remoteDirListing
	createSubID int64
}

// allocatedRegistry is a fixed-capacity, densely packed slice of
// outstanding allocated descriptors. Freeing an entry swaps the last live
// entry into the freed slot so live entries always occupy [0, count) with
// no holes; callers that iterate the registry while freeing must
// re-examine the current index after a free for exactly this reason.
type allocatedRegistry struct {
	entries []allocatedEntry
	handles []int // handle value at entries[i], used to answer free-by-handle
	count   int

	// lastIterated caches the registry index of the remote listing most
	// recently touched by ReadDir, so repeated reads of the same handle
	// don't re-scan the registry every call.
	lastIterated int
}

func newAllocatedRegistry() *allocatedRegistry {
	return &allocatedRegistry{
		entries:      make([]allocatedEntry, cfg.MaxAllocatedDescriptors),
		handles:      make([]int, cfg.MaxAllocatedDescriptors),
		lastIterated: -1,
	}
}

// alloc reserves a slot for e and returns an opaque handle identifying it.
// Returns ErrAllocatedDescriptorsExhausted when the registry is full.
func (r *allocatedRegistry) alloc(e allocatedEntry, nextHandle int) (handle int, err error) {
	if r.count >= len(r.entries) {
		return 0, ErrAllocatedDescriptorsExhausted
	}
	i := r.count
	r.entries[i] = e
	r.handles[i] = nextHandle
	r.count++
	return nextHandle, nil
}

// indexOf returns the registry index of handle, or -1.
func (r *allocatedRegistry) indexOf(handle int) int {
	if r.lastIterated >= 0 && r.lastIterated < r.count && r.handles[r.lastIterated] == handle {
		return r.lastIterated
	}
	for i := 0; i < r.count; i++ {
		if r.handles[i] == handle {
			return i
		}
	}
	return -1
}

// free releases the entry identified by handle, compacting the registry.
// Returns ErrInvalidVFD if no live entry has that handle or it has the
// wrong kind.
func (r *allocatedRegistry) free(handle int, wantKind allocatedKind) (allocatedEntry, error) {
	i := r.indexOf(handle)
	if i < 0 || r.entries[i].kind != wantKind {
		return allocatedEntry{}, ErrInvalidVFD
	}
	e := r.entries[i]
	last := r.count - 1
	r.entries[i] = r.entries[last]
	r.handles[i] = r.handles[last]
	r.entries[last] = allocatedEntry{}
	r.handles[last] = 0
	r.count--
	r.lastIterated = -1
	return e, nil
}

func (r *allocatedRegistry) get(handle int) (*allocatedEntry, bool) {
	i := r.indexOf(handle)
	if i < 0 {
		return nil, false
	}
	r.lastIterated = i
	return &r.entries[i], true
}

func (r *allocatedRegistry) len() int {
	return r.count
}

// entryAt and freeAt give the transaction hooks index-based access so they
// can walk the registry and free matching entries in place: freeAt
// compacts by swapping the last entry into i, so a caller looping forward
// must re-examine index i after a free rather than advancing past it.
func (r *allocatedRegistry) entryAt(i int) allocatedEntry {
	return r.entries[i]
}

func (r *allocatedRegistry) freeAt(i int) allocatedEntry {
	e := r.entries[i]
	last := r.count - 1
	r.entries[i] = r.entries[last]
	r.handles[i] = r.handles[last]
	r.entries[last] = allocatedEntry{}
	r.handles[last] = 0
	r.count--
	r.lastIterated = -1
	return e
}

// closeEntry releases whatever OS resource e holds; remote directory
// listings hold none.
func closeEntry(e allocatedEntry) error {
	switch e.kind {
	case allocatedFile:
		return e.file.Close()
	case allocatedLocalDir:
		return e.localDir.Close()
	default:
		return nil
	}
}

// AllocateFile opens path as a stdio-style *os.File, guarded by the
// registry's fixed capacity and the maxSafeFds-1 ceiling per §4.H. subID
// is recorded as the entry's creating sub-transaction, consulted by
// AtEOSubXact.
func (m *Manager) AllocateFile(ctx context.Context, path string, flags int, mode os.FileMode, subID int64) (handle int, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpAllocateFile, start, common.BackendLocal, err) }()

	if m.allocated.len() >= cfg.MaxAllocatedDescriptors {
		return 0, ErrAllocatedDescriptorsExhausted
	}
	if err := m.ensureHeadroomFor(ctx, m.maxSafeFds-1); err != nil {
		return 0, err
	}

	f, err := m.openOSFileWithRetry(ctx, path, flags, mode)
	if err != nil {
		return 0, err
	}

	h, err := m.allocated.alloc(allocatedEntry{kind: allocatedFile, file: f, createSubID: subID}, m.nextHandle)
	if err != nil {
		_ = f.Close()
		return 0, err
	}
	m.nextHandle++
	m.metrics.AllocatedDescCount(ctx, int64(m.allocated.len()))
	return h, nil
}

// AllocateDir opens path for directory iteration. A local path gets a real
// *os.File directory handle; a remote path takes one listdir snapshot and
// stores it with a cursor, since the dfs client has no streaming readdir.
func (m *Manager) AllocateDir(ctx context.Context, path string, subID int64) (handle int, err error) {
	start := m.clock.Now()
	isDFS := !isLocalPath(path)
	defer func() { m.recordOp(ctx, common.OpAllocateDir, start, backendNameForPath(isDFS), err) }()

	if m.allocated.len() >= cfg.MaxAllocatedDescriptors {
		return 0, ErrAllocatedDescriptorsExhausted
	}

	var e allocatedEntry
	if isDFS {
		names, lerr := m.dfs.readDirNames(ctx, path)
		if lerr != nil {
			return 0, lerr
		}
		e = allocatedEntry{kind: allocatedRemoteDir, remoteDir: &remoteDirListing{basePath: path, names: names}, createSubID: subID}
	} else {
		if err := m.ensureHeadroomFor(ctx, m.maxSafeFds-1); err != nil {
			return 0, err
		}
		f, oerr := os.Open(stripLocalPrefix(path))
		if oerr != nil {
			return 0, oerr
		}
		e = allocatedEntry{kind: allocatedLocalDir, localDir: f, createSubID: subID}
	}

	h, err := m.allocated.alloc(e, m.nextHandle)
	if err != nil {
		if e.localDir != nil {
			_ = e.localDir.Close()
		}
		return 0, err
	}
	m.nextHandle++
	m.metrics.AllocatedDescCount(ctx, int64(m.allocated.len()))
	return h, nil
}

// FreeFile releases a handle obtained from AllocateFile.
func (m *Manager) FreeFile(ctx context.Context, handle int) (err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFreeFile, start, common.BackendLocal, err) }()

	e, ferr := m.allocated.free(handle, allocatedFile)
	if ferr != nil {
		return ferr
	}
	m.metrics.AllocatedDescCount(ctx, int64(m.allocated.len()))
	return e.file.Close()
}

// FreeDir releases a handle obtained from AllocateDir.
func (m *Manager) FreeDir(ctx context.Context, handle int) (err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFreeDir, start, "", err) }()

	if e, ferr := m.allocated.free(handle, allocatedLocalDir); ferr == nil {
		m.metrics.AllocatedDescCount(ctx, int64(m.allocated.len()))
		return e.localDir.Close()
	}
	if _, ferr := m.allocated.free(handle, allocatedRemoteDir); ferr == nil {
		m.metrics.AllocatedDescCount(ctx, int64(m.allocated.len()))
		return nil
	}
	return ErrInvalidVFD
}

// ReadDir returns the next base-name entry from handle, or ok=false at end
// of the directory. For a remote handle this walks the snapshot taken at
// AllocateDir time; it will not observe entries created afterward.
func (m *Manager) ReadDir(ctx context.Context, handle int) (name string, ok bool, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpReadDir, start, "", err) }()

	e, found := m.allocated.get(handle)
	if !found {
		return "", false, ErrInvalidVFD
	}

	switch e.kind {
	case allocatedLocalDir:
		names, derr := e.localDir.Readdirnames(1)
		if derr == io.EOF {
			return "", false, nil
		}
		if derr != nil {
			return "", false, derr
		}
		return names[0], true, nil
	case allocatedRemoteDir:
		d := e.remoteDir
		if d.cursor >= len(d.names) {
			return "", false, nil
		}
		n := d.names[d.cursor]
		d.cursor++
		return n, true, nil
	default:
		return "", false, ErrInvalidVFD
	}
}

// RemoteDirEntryPath joins a remote directory handle's base path with one
// of the base names ReadDir returned, for callers that need to issue a
// path-info call on a specific entry.
func (m *Manager) RemoteDirEntryPath(handle int, name string) (string, error) {
	e, found := m.allocated.get(handle)
	if !found || e.kind != allocatedRemoteDir {
		return "", ErrInvalidVFD
	}
	return dfsJoin(e.remoteDir.basePath, name), nil
}

func dfsJoin(base, name string) string {
	if base == "" {
		return name
	}
	if base[len(base)-1] == '/' {
		return base + name
	}
	return base + "/" + name
}

// ensureHeadroomFor is ensureHeadroom generalized to an arbitrary ceiling,
// used by the allocated-descriptor path whose budget check is against
// maxSafeFds-1 rather than maxSafeFds (§4.H).
func (m *Manager) ensureHeadroomFor(ctx context.Context, ceiling int) error {
	for m.budgetInUse() >= ceiling {
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

// openOSFileWithRetry opens path as a plain *os.File (for AllocateFile),
// retrying once after ReleaseLru on EMFILE/ENFILE per §4.H.
func (m *Manager) openOSFileWithRetry(ctx context.Context, path string, flags int, mode os.FileMode) (*os.File, error) {
	path = stripLocalPrefix(path)
	f, err := os.OpenFile(path, flags, mode)
	if err != nil && isResourceExhausted(err) {
		if _, relErr := m.releaseLru(ctx); relErr != nil {
			return nil, relErr
		}
		f, err = os.OpenFile(path, flags, mode)
	}
	return f, err
}
