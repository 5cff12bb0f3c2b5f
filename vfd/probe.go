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
	"fmt"
	"syscall"

	"github.com/filecachedb/vfdcache/cfg"
)

// probeEnv's dup and close are overridden in tests so probing doesn't need a
// real process-wide descriptor table to exercise.
type probeEnv struct {
	dup   func(oldfd int) (int, error)
	close func(fd int) error
}

func newProbeEnv() probeEnv {
	return probeEnv{dup: syscall.Dup, close: syscall.Close}
}

// probe determines how many additional kernel descriptors this process can
// safely open at once, by repeatedly duplicating fd 0 until the kernel
// refuses (EMFILE) and then releasing every duplicate. It also reports the
// highest descriptor number observed, which initFileAccess uses to infer how
// many descriptors were already open before the probe started. The result
// feeds InitFileAccess's computation of maxSafeFds.
func probe(env probeEnv, hardCap int) (usable int, highest int, err error) {
	if hardCap <= 0 {
		hardCap = cfg.DefaultMaxFilesPerProcess
	}

	dups := make([]int, 0, hardCap)
	defer func() {
		for _, fd := range dups {
			_ = env.close(fd)
		}
	}()

	highest = -1
	for len(dups) < hardCap {
		fd, dupErr := env.dup(0)
		if dupErr != nil {
			if isResourceExhausted(dupErr) {
				break
			}
			return 0, 0, fmt.Errorf("vfd: probing descriptor budget: %w", dupErr)
		}
		dups = append(dups, fd)
		if fd > highest {
			highest = fd
		}
	}

	return len(dups), highest, nil
}

// initFileAccess computes the number of physically open slots the ring may
// hold at once, per §4.A: already_open is inferred from the gap between the
// highest descriptor seen and the count of successful dups, and the
// configured cap is charged against that many descriptors before RESERVED is
// subtracted. Returns ErrInsufficientDescriptors if what remains would leave
// fewer than cfg.MinFreeDescriptors of slack.
func initFileAccess(env probeEnv, c *cfg.Config) (maxSafeFds int, err error) {
	usable, highest, err := probe(env, c.MaxFilesPerProcess)
	if err != nil {
		return 0, err
	}
	alreadyOpen := highest + 1 - usable

	cap := c.MaxFilesPerProcess
	if cap <= 0 {
		cap = cfg.DefaultMaxFilesPerProcess
	}

	budget := cap - alreadyOpen
	if usable < budget {
		budget = usable
	}
	maxSafeFds = budget - cfg.ReservedDescriptors

	if maxSafeFds < cfg.MinFreeDescriptors {
		return 0, ErrInsufficientDescriptors
	}
	return maxSafeFds, nil
}
