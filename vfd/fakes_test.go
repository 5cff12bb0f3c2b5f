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
	"bytes"
	"os"
	"sort"
	"strings"
	"time"
)

// fakeDFSFile is one entry of a fakeDFSClient's in-memory filesystem.
type fakeDFSFile struct {
	data []byte
	mode os.FileMode
}

// fakeDFSClient is a minimal in-memory stand-in for dfsClient, letting the
// dfs back end and endpoint cache be exercised without a real HDFS
// cluster. It is intentionally not safe for concurrent use, matching this
// package's single-threaded contract.
type fakeDFSClient struct {
	files  map[string]*fakeDFSFile
	closed bool

	// failNextOpen lets a test simulate a transient connection fault.
	failNextOpen bool
}

func newFakeDFSClient() *fakeDFSClient {
	return &fakeDFSClient{files: make(map[string]*fakeDFSFile)}
}

func (c *fakeDFSClient) Open(name string) (dfsReader, error) {
	if c.failNextOpen {
		c.failNextOpen = false
		return nil, os.ErrPermission
	}
	f, ok := c.files[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return &fakeDFSReader{Reader: bytes.NewReader(f.data)}, nil
}

func (c *fakeDFSClient) Append(name string) (dfsWriter, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, &os.PathError{Op: "append", Path: name, Err: os.ErrNotExist}
	}
	return &fakeDFSWriter{client: c, name: name, buf: append([]byte(nil), f.data...)}, nil
}

func (c *fakeDFSClient) CreateFile(name string, replication int, blockSize int64, perm os.FileMode) (dfsWriter, error) {
	c.files[name] = &fakeDFSFile{mode: perm}
	return &fakeDFSWriter{client: c, name: name}, nil
}

func (c *fakeDFSClient) Remove(name string) error {
	if _, ok := c.files[name]; !ok {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	delete(c.files, name)
	return nil
}

func (c *fakeDFSClient) RemoveAll(name string) error {
	prefix := name + "/"
	for k := range c.files {
		if k == name || strings.HasPrefix(k, prefix) {
			delete(c.files, k)
		}
	}
	return nil
}

func (c *fakeDFSClient) Mkdir(name string, perm os.FileMode) error {
	c.files[name] = &fakeDFSFile{mode: perm | os.ModeDir}
	return nil
}

func (c *fakeDFSClient) ReadDir(dirname string) ([]os.FileInfo, error) {
	prefix := dirname + "/"
	var names []string
	for k := range c.files {
		if strings.HasPrefix(k, prefix) && !strings.Contains(strings.TrimPrefix(k, prefix), "/") {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(names)
	infos := make([]os.FileInfo, len(names))
	for i, n := range names {
		infos[i] = fakeFileInfo{name: n, file: c.files[prefix+n]}
	}
	return infos, nil
}

func (c *fakeDFSClient) Stat(name string) (os.FileInfo, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return fakeFileInfo{name: name, file: f}, nil
}

func (c *fakeDFSClient) Close() error {
	c.closed = true
	return nil
}

type fakeFileInfo struct {
	name string
	file *fakeDFSFile
}

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return int64(len(i.file.data)) }
func (i fakeFileInfo) Mode() os.FileMode  { return i.file.mode }
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return i.file.mode&os.ModeDir != 0 }
func (i fakeFileInfo) Sys() any           { return nil }

// fakeDFSReader adapts a *bytes.Reader to dfsReader (adds a no-op Close).
type fakeDFSReader struct {
	*bytes.Reader
}

func (r *fakeDFSReader) Close() error { return nil }

// fakeDFSWriter is an append-only in-memory dfsWriter; Close flushes buf
// back into the client's file table.
type fakeDFSWriter struct {
	client *fakeDFSClient
	name   string
	buf    []byte
	closed bool
}

func (w *fakeDFSWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *fakeDFSWriter) Flush() error {
	if f, ok := w.client.files[w.name]; ok {
		f.data = append([]byte(nil), w.buf...)
	}
	return nil
}

func (w *fakeDFSWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.Flush()
}
