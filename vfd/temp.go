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
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/filecachedb/vfdcache/common"
)

// tempFileName builds the path for a temp file under dir following §4.G's
// "<prefix>_<name>" scheme, followed by either "_<pid>_<seq>.<uuid>"
// (unique — the uuid suffix is what keeps concurrent backends and repeated
// calls within one process collision-free without a shared counter) or
// ".<seq>" (shared, so two callers that agree on name+seq intentionally
// collide on the same path).
func tempFileName(dir, name string, seq int, unique bool) string {
	base := fmt.Sprintf("%s_%s", cfg.TempFilePrefix, name)
	if unique {
		return filepath.Join(dir, fmt.Sprintf("%s_%d_%d.%s", base, os.Getpid(), seq, uuid.NewString()))
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%d", base, seq))
}

// tempDirFor returns the temp-file subdirectory a temp file for the given
// tablespace base path should live under; OpenTemporary creates it on
// demand via mkdir before first use.
func tempDirFor(tablespaceBase string) string {
	return filepath.Join(tablespaceBase, cfg.TempFileDir)
}

// FileNameOpen opens relname under the session's temp directory — the
// first configured temp tablespace — joining the two and delegating to
// PathNameOpen, per §6. Grounded on fd.c's FileNameOpenFile
// (original_source/cdb-pg/src/backend/storage/file/fd.c:958), which joins
// fileName onto getCurrentTempFilePath before calling PathNameOpenFile.
func (m *Manager) FileNameOpen(ctx context.Context, relname string, flags int, mode os.FileMode) (vfd int, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpFileNameOpen, start, common.BackendLocal, err) }()

	if filepath.IsAbs(relname) {
		return 0, fmt.Errorf("vfd: FileNameOpen requires a relative name, got %q", relname)
	}
	if len(m.cfg.TempTablespaces) == 0 {
		return 0, ErrNoTempTablespace
	}

	dir := tempDirFor(m.cfg.TempTablespaces[0])
	return m.PathNameOpen(ctx, filepath.Join(dir, relname), flags, mode)
}

// OpenTemporary opens a new (or, when unique=false, a possibly shared)
// temporary file under tablespaceBase, per §4.G. create selects
// O_CREAT|O_TRUNC; delOnClose sets StateTemporary so FileClose unlinks it;
// closeAtEOXact additionally sets StateCloseAtEOXact and records subID so
// AtEOSubXact/AtEOXact can reach it even if the caller never explicitly
// closes it.
func (m *Manager) OpenTemporary(ctx context.Context, tablespaceBase, name string, seq int, unique, create, delOnClose, closeAtEOXact bool, subID int64) (vfd int, err error) {
	start := m.clock.Now()
	defer func() { m.recordOp(ctx, common.OpOpenTemporaryFile, start, common.BackendLocal, err) }()

	dir := tempDirFor(tablespaceBase)
	path := tempFileName(dir, name, seq, unique)

	flags := os.O_RDWR
	if create {
		flags |= os.O_TRUNC | os.O_CREATE
	}

	vfd, err = m.PathNameOpen(ctx, path, flags, os.FileMode(m.cfg.TempFileMode))
	if err != nil && os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0700); mkErr != nil && !os.IsExist(mkErr) {
			return 0, mkErr
		}
		vfd, err = m.PathNameOpen(ctx, path, flags, os.FileMode(m.cfg.TempFileMode))
	}
	if err != nil {
		return 0, err
	}

	s := m.table.get(vfd)
	if delOnClose {
		s.state |= StateTemporary
	}
	if closeAtEOXact {
		s.state |= StateCloseAtEOXact
		s.createSubID = subID
	}
	return vfd, nil
}
