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
	"errors"
	"syscall"
)

// syscallENOSPC is the error FileWrite synthesizes for a short local write
// that returned errno==0, per §4.D.
var syscallENOSPC = syscall.ENOSPC

var (
	// ErrInsufficientDescriptors is returned by initFileAccess (and so by
	// NewManager) when the
	// descriptor budget after reservation falls below MinFreeDescriptors.
	ErrInsufficientDescriptors = errors.New("vfd: insufficient file descriptors available")

	// ErrInvariant marks a violation of an invariant this package promises to
	// maintain (a negative saved seek position, a ring/freelist inconsistency).
	// Seeing this means a prior call left state inconsistent; it is not a
	// condition callers should expect to recover from.
	ErrInvariant = errors.New("vfd: internal invariant violated")

	// ErrInvalidVFD is returned when an operation is given a handle that does
	// not refer to a currently logically-open slot.
	ErrInvalidVFD = errors.New("vfd: invalid or closed vfd")

	// ErrAllocatedDescriptorsExhausted is returned by AllocateFile/AllocateDir
	// when the fixed-capacity registry is full.
	ErrAllocatedDescriptorsExhausted = errors.New("vfd: allocated descriptor registry is full")

	// ErrDFSWriteNotAppend is returned when a DFS open for writing has
	// neither O_APPEND nor O_TRUNC, and by a seek on a DFS write handle; the
	// remote back end only supports append writers.
	ErrDFSWriteNotAppend = errors.New("vfd: dfs write opens must be append-only")

	// ErrDFSTruncateMismatch is returned when a post-reopen DFS file length
	// does not match the length requested by Truncate.
	ErrDFSTruncateMismatch = errors.New("vfd: dfs truncate could not be verified after reopen")

	// ErrDFSPrealloc is returned by Prealloc on a DFS-backed vfd; the remote
	// back end has no fallocate equivalent.
	ErrDFSPrealloc = errors.New("vfd: preallocation is not supported on dfs files")

	// ErrNoTempTablespace is returned by FileNameOpen when no temp
	// tablespace is configured to resolve the session's temp directory
	// against.
	ErrNoTempTablespace = errors.New("vfd: no temp tablespace configured")
)

// isResourceExhausted reports whether err is EMFILE or ENFILE, the two
// conditions this package recovers from by evicting an LRU slot and
// retrying once.
func isResourceExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}

// isInterrupted reports whether err is EINTR, which local reads, writes and
// closes retry unconditionally.
func isInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
