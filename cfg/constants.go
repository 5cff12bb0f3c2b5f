// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

import "time"

const (
	// ReservedDescriptors is subtracted from the probed descriptor count to
	// leave headroom for descriptors opened outside the VFD layer (libraries,
	// exec'd children, etc).
	ReservedDescriptors = 10

	// MinFreeDescriptors is the smallest max-safe-fds value this module will
	// start with; anything lower is treated as a fatal resource shortage.
	MinFreeDescriptors = 10

	// MaxAllocatedDescriptors bounds the allocated-descriptor registry
	// (stdio FILE* and directory handles).
	MaxAllocatedDescriptors = 32

	// DefaultMaxSafeFds is used until the startup probe runs.
	DefaultMaxSafeFds = 32

	// DefaultMaxFilesPerProcess is the configured cap the probe clamps
	// against.
	DefaultMaxFilesPerProcess = 1000

	// DefaultDFSReplicas is the replication factor used when a path doesn't
	// specify one via "{replica=N}".
	DefaultDFSReplicas = 3

	// TempFilePrefix names every temp file and directory this module
	// creates, so the startup sweep can recognize its own litter.
	TempFilePrefix = "vfdtmp"

	// TempFileDir is the subdirectory name created under each configured
	// temp tablespace to hold temp files.
	TempFileDir = "vfdtmp_dir"
)

// Logging-level constants.
const (
	TRACE   string = "TRACE"
	DEBUG   string = "DEBUG"
	INFO    string = "INFO"
	WARNING string = "WARNING"
	ERROR   string = "ERROR"
	OFF     string = "OFF"
)

// Sync-method constants, matching the host filesystem sync policies a local
// File can be flushed with.
const (
	SyncMethodFsync             = "fsync"
	SyncMethodFsyncWritethrough = "fsync_writethrough"
	SyncMethodFdatasync         = "fdatasync"
	SyncMethodOpenSync          = "open_sync"
)

const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultConnectRetries   = 3
	DefaultConnectBackoffMin = 100 * time.Millisecond
	DefaultConnectBackoffMax = 2 * time.Second
)
