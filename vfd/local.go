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
	"syscall"
)

// localBackend serves paths on the process's own filesystem through the
// ordinary POSIX open/read/write/close syscalls.
type localBackend struct{}

func newLocalBackend() *localBackend {
	return &localBackend{}
}

func (b *localBackend) open(_ context.Context, path string, intent openIntent) (handle, error) {
	path = stripLocalPrefix(path)
	f, err := os.OpenFile(path, intent.flags, intent.mode)
	for isInterrupted(err) {
		f, err = os.OpenFile(path, intent.flags, intent.mode)
	}
	if err != nil {
		return nil, err
	}
	return &localHandle{f: f}, nil
}

func (b *localBackend) remove(_ context.Context, path string, directory bool) error {
	if directory {
		return os.RemoveAll(stripLocalPrefix(path))
	}
	return os.Remove(stripLocalPrefix(path))
}

func (b *localBackend) mkdir(_ context.Context, path string, mode os.FileMode) error {
	return os.Mkdir(stripLocalPrefix(path), mode)
}

func (b *localBackend) readDirNames(_ context.Context, path string) ([]string, error) {
	f, err := os.Open(stripLocalPrefix(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

func (b *localBackend) stat(_ context.Context, path string) (statInfo, error) {
	return os.Stat(stripLocalPrefix(path))
}

// localHandle wraps *os.File to satisfy handle, retrying EINTR on the
// syscalls known to return it and translating short/retryable conditions
// the way the rest of the package expects.
type localHandle struct {
	f *os.File
}

func (h *localHandle) Read(p []byte) (int, error) {
	n, err := h.f.Read(p)
	for isInterrupted(err) {
		n, err = h.f.Read(p)
	}
	return n, err
}

func (h *localHandle) Write(p []byte) (int, error) {
	n, err := h.f.Write(p)
	for isInterrupted(err) {
		n, err = h.f.Write(p)
	}
	return n, err
}

func (h *localHandle) Close() error {
	err := h.f.Close()
	for isInterrupted(err) {
		err = h.f.Close()
	}
	return err
}

func (h *localHandle) seek(offset int64, whence int) (int64, error) {
	return h.f.Seek(offset, whence)
}

func (h *localHandle) sync() error {
	return h.f.Sync()
}

func (h *localHandle) truncate(size int64) error {
	return h.f.Truncate(size)
}

func (h *localHandle) rawFD() (int, bool) {
	return int(h.f.Fd()), true
}

// preallocate calls fallocate(2) via syscall.Fallocate, falling back to a
// harmless no-op success on platforms/filesystems that report ENOTSUP —
// callers treat an unsupported preallocation as advisory.
func preallocate(fd int, size int64) error {
	err := syscall.Fallocate(fd, 0, 0, size)
	if err == syscall.ENOTSUP || err == syscall.EOPNOTSUPP {
		return nil
	}
	return err
}
