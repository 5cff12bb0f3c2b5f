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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecachedb/vfdcache/cfg"
)

func TestAllocateFile_FreeFile_Roundtrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10)
	path := filepath.Join(t.TempDir(), "f")

	h, err := m.AllocateFile(ctx, path, os.O_RDWR|os.O_CREATE, 0600, 0)
	require.NoError(t, err)
	require.NoError(t, m.FreeFile(ctx, h))
	assertBudgetInvariant(t, m)
}

func TestAllocateFile_RegistryExhausted(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1000)
	dir := t.TempDir()

	var handles []int
	for i := 0; i < cfg.MaxAllocatedDescriptors; i++ {
		h, err := m.AllocateFile(ctx, filepath.Join(dir, string(rune('a'+i))), os.O_RDWR|os.O_CREATE, 0600, 0)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	_, err := m.AllocateFile(ctx, filepath.Join(dir, "overflow"), os.O_RDWR|os.O_CREATE, 0600, 0)
	assert.ErrorIs(t, err, ErrAllocatedDescriptorsExhausted)

	for _, h := range handles {
		require.NoError(t, m.FreeFile(ctx, h))
	}
}

func TestAllocatedRegistry_FreeCompactsBySwappingLast(t *testing.T) {
	r := newAllocatedRegistry()
	h1, err := r.alloc(allocatedEntry{kind: allocatedFile}, 1)
	require.NoError(t, err)
	h2, err := r.alloc(allocatedEntry{kind: allocatedFile}, 2)
	require.NoError(t, err)
	h3, err := r.alloc(allocatedEntry{kind: allocatedFile}, 3)
	require.NoError(t, err)

	// Freeing h1 (index 0) should swap h3 (the last live entry) into its
	// slot, per the documented compaction rule.
	_, err = r.free(h1, allocatedFile)
	require.NoError(t, err)

	assert.Equal(t, 2, r.len())
	assert.Equal(t, h3, r.handles[0], "freeing index 0 must swap the last entry into it")
	assert.Equal(t, h2, r.handles[1])
}

func TestAllocateLocalDir_ReadDir(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two"), []byte("y"), 0600))

	h, err := m.AllocateDir(ctx, dir, 0)
	require.NoError(t, err)

	seen := map[string]bool{}
	for {
		name, ok, err := m.ReadDir(ctx, h)
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[name] = true
	}
	assert.True(t, seen["one"])
	assert.True(t, seen["two"])

	require.NoError(t, m.FreeDir(ctx, h))
}

func TestAllocateRemoteDir_ReadDirUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	m, fc := newTestDFSManager(t)
	require.NoError(t, m.MakeDirectory(ctx, "hdfs://nn1:8020/dir", 0755))

	// Seed two files directly through the fake client's backing map.
	fc.files["/dir/a"] = &fakeDFSFile{data: []byte("1")}
	fc.files["/dir/b"] = &fakeDFSFile{data: []byte("2")}

	h, err := m.AllocateDir(ctx, "hdfs://nn1:8020/dir", 0)
	require.NoError(t, err)

	var names []string
	for {
		name, ok, err := m.ReadDir(ctx, h)
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	// The snapshot must not observe entries created after AllocateDir.
	fc.files["/dir/c"] = &fakeDFSFile{data: []byte("3")}
	name, ok, err := m.ReadDir(ctx, h)
	require.NoError(t, err)
	assert.False(t, ok, "the first snapshot must not yield %q", name)

	// A fresh AllocateDir takes a new snapshot, which does include it.
	h2, err := m.AllocateDir(ctx, "hdfs://nn1:8020/dir", 0)
	require.NoError(t, err)
	var names2 []string
	for {
		name, ok, err := m.ReadDir(ctx, h2)
		require.NoError(t, err)
		if !ok {
			break
		}
		names2 = append(names2, name)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names2)
}

func TestRemoteDirEntryPath_Joins(t *testing.T) {
	ctx := context.Background()
	m, fc := newTestDFSManager(t)
	fc.files["/dir/a"] = &fakeDFSFile{data: []byte("1")}

	h, err := m.AllocateDir(ctx, "hdfs://nn1:8020/dir", 0)
	require.NoError(t, err)

	path, err := m.RemoteDirEntryPath(h, "a")
	require.NoError(t, err)
	assert.Equal(t, "hdfs://nn1:8020/dir/a", path)
}
