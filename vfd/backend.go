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
)

// dfsReader is the subset of *hdfs.FileReader the dfs back end relies on.
// Declaring it locally keeps local.go/manager.go free of a direct
// colinmarc/hdfs import and gives tests a narrow surface to fake.
type dfsReader interface {
	io.ReadCloser
	io.Seeker
}

// dfsWriter is the subset of *hdfs.FileWriter the dfs back end relies on.
// HDFS writers are append-only streams; there is no Seek.
type dfsWriter interface {
	io.WriteCloser
	Flush() error
}

// statInfo is the subset of os.FileInfo callers of Stat need.
type statInfo interface {
	Size() int64
	Mode() os.FileMode
	IsDir() bool
}

// openIntent describes how a name should be opened or created, independent
// of which back end serves it.
type openIntent struct {
	flags int
	mode  os.FileMode
}

// backend is the capability set every storage back end implements: open,
// read, write, seek, sync, truncate, tell, close, plus the handful of
// namespace operations (remove, mkdir, readdir, stat) the dispatch layer
// needs. Local and DFS each implement this once; everything above
// dispatch.go is back-end agnostic.
type backend interface {
	// open returns a freshly opened handle for path. For the dfs back end,
	// path is the full "proto://[{opts}]host:port/abspath" name.
	open(ctx context.Context, path string, intent openIntent) (handle, error)

	remove(ctx context.Context, path string, directory bool) error
	mkdir(ctx context.Context, path string, mode os.FileMode) error
	readDirNames(ctx context.Context, path string) ([]string, error)
	stat(ctx context.Context, path string) (statInfo, error)
}

// handle is a single physically open file, local or remote.
type handle interface {
	io.Reader
	io.Writer
	io.Closer

	// seek repositions the handle and returns the new offset. Implementations
	// for append-only back ends only accept SEEK_END-equivalent intent
	// through tell bookkeeping done by the caller; seek itself is only
	// meaningful for local and DFS-read handles.
	seek(offset int64, whence int) (int64, error)

	sync() error
	truncate(size int64) error

	// rawFD returns the kernel descriptor backing this handle, if any. Only
	// local handles return ok=true.
	rawFD() (fd int, ok bool)
}
