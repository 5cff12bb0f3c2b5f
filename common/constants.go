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

package common

// Operation names recorded against the ops/error/latency metrics. These
// mirror the public entry points of the vfd manager rather than any
// particular backend's vocabulary.
const (
	OpPathNameOpen         = "PathNameOpen"
	OpFileNameOpen         = "FileNameOpen"
	OpOpenTemporaryFile    = "OpenTemporaryFile"
	OpFileClose            = "FileClose"
	OpFileRead             = "FileRead"
	OpFileWrite            = "FileWrite"
	OpFileSeek             = "FileSeek"
	OpFileSync             = "FileSync"
	OpFileTruncate         = "FileTruncate"
	OpFilePrealloc         = "FilePrealloc"
	OpRemovePath           = "RemovePath"
	OpMakeDirectory        = "MakeDirectory"
	OpAllocateFile         = "AllocateFile"
	OpAllocateDir          = "AllocateDir"
	OpFreeFile             = "FreeFile"
	OpFreeDir              = "FreeDir"
	OpReadDir              = "ReadDir"
	OpReopen               = "Reopen"
	OpEvict                = "Evict"
	OpDFSConnect           = "DFSConnect"
	OpAtEOSubXact          = "AtEOSubXact"
	OpAtEOXact             = "AtEOXact"
	OpAtXactCancel         = "AtXactCancel"
	OpAtProcExit           = "AtProcExit"
	OpRemoveStaleTempFiles = "RemoveStaleTempFiles"
)

// ReadType annotates a read or write as sequential or random, mirroring
// the access-pattern hint callers pass down to the backend.
const (
	ReadTypeSequential = "sequential"
	ReadTypeRandom     = "random"
)

// Backend annotates a metric with which backend served an operation.
const (
	BackendLocal = "local"
	BackendDFS   = "dfs"
)
