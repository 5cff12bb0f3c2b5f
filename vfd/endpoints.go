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
	"time"

	"github.com/colinmarc/hdfs/v2"
	"github.com/jpillora/backoff"

	"github.com/filecachedb/vfdcache/cfg"
	"github.com/filecachedb/vfdcache/common"
	"github.com/filecachedb/vfdcache/roundrobinslice"
)

// dfsClient is the subset of *hdfs.Client the dfs back end relies on,
// narrowed to the dfsReader/dfsWriter/statInfo capability interfaces
// declared in backend.go rather than the concrete *hdfs.FileReader/
// *hdfs.FileWriter types, so tests can fake a connection without a real
// cluster. hdfsClientAdapter below is what makes a real *hdfs.Client
// satisfy this narrower shape.
type dfsClient interface {
	Open(name string) (dfsReader, error)
	Append(name string) (dfsWriter, error)
	CreateFile(name string, replication int, blockSize int64, perm os.FileMode) (dfsWriter, error)
	Remove(name string) error
	RemoveAll(name string) error
	Mkdir(name string, perm os.FileMode) error
	ReadDir(dirname string) ([]os.FileInfo, error)
	Stat(name string) (os.FileInfo, error)
	Close() error
}

// hdfsClientAdapter wraps a real *hdfs.Client so its concrete
// *hdfs.FileReader/*hdfs.FileWriter return values satisfy dfsClient's
// narrower interface-typed signatures.
type hdfsClientAdapter struct {
	*hdfs.Client
}

func (a hdfsClientAdapter) Open(name string) (dfsReader, error) {
	return a.Client.Open(name)
}

func (a hdfsClientAdapter) Append(name string) (dfsWriter, error) {
	return a.Client.Append(name)
}

func (a hdfsClientAdapter) CreateFile(name string, replication int, blockSize int64, perm os.FileMode) (dfsWriter, error) {
	return a.Client.CreateFile(name, replication, blockSize, perm)
}

// endpointCache keeps one long-lived connection per DFS alias, matching the
// "connections are never evicted" rule: the vfd budget governs physical
// file handles, not the namenode RPC connections layered under them. The
// cache is a plain map because a manager is only ever driven by a single
// goroutine at a time.
type endpointCache struct {
	cfg     *cfg.DFSConfig
	clock   clockSource
	metrics common.MetricHandle
	conns   map[string]dfsClient

	// dial is overridden in tests to avoid a real network dial.
	dial func(alias string, addrs []string) (dfsClient, error)
}

func newEndpointCache(c *cfg.DFSConfig, clk clockSource, m common.MetricHandle) *endpointCache {
	ec := &endpointCache{
		cfg:     c,
		clock:   clk,
		metrics: m,
		conns:   make(map[string]dfsClient),
	}
	ec.dial = ec.dialReal
	return ec
}

// get returns the cached connection for alias, dialing and retrying on
// first use.
func (ec *endpointCache) get(ctx context.Context, alias string) (dfsClient, error) {
	if c, ok := ec.conns[alias]; ok {
		return c, nil
	}

	addrs, ok := cfg.NamenodesFor(&cfg.Config{DFS: *ec.cfg}, alias)
	if !ok || len(addrs) == 0 {
		// No HA namenode list configured for this alias; per §6's grammar
		// the alias itself is already a literal "host:port".
		addrs = []string{alias}
	}

	start := ec.clock.Now()
	c, retries, err := ec.dialWithRetry(alias, addrs)
	ec.metrics.DFSConnectLatency(ctx, ec.clock.Now().Sub(start), []common.MetricAttr{{Key: common.BackendKey, Value: common.BackendDFS}})
	if retries > 0 {
		ec.metrics.DFSConnectRetryCount(ctx, int64(retries), []common.MetricAttr{{Key: common.BackendKey, Value: common.BackendDFS}})
	}
	if err != nil {
		return nil, err
	}
	ec.metrics.DFSConnectCount(ctx, 1, []common.MetricAttr{{Key: common.BackendKey, Value: common.BackendDFS}})

	ec.conns[alias] = c
	return c, nil
}

func (ec *endpointCache) dialWithRetry(alias string, addrs []string) (dfsClient, int, error) {
	rr := roundrobinslice.New(addrs)
	b := &backoff.Backoff{
		Min:    ec.cfg.ConnectBackoffMin,
		Max:    ec.cfg.ConnectBackoffMax,
		Factor: 2,
		Jitter: true,
	}

	retries := ec.cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		addr, ok := rr.Get()
		if !ok {
			return nil, attempt, fmt.Errorf("vfd: no namenode addresses for alias %q", alias)
		}
		c, err := ec.dial(alias, []string{addr})
		if err == nil {
			return c, attempt, nil
		}
		lastErr = err
		if attempt < retries {
			<-ec.clock.After(b.Duration())
		}
	}
	return nil, retries, fmt.Errorf("vfd: dfs connect to alias %q exhausted retries: %w", alias, lastErr)
}

func (ec *endpointCache) dialReal(alias string, addrs []string) (dfsClient, error) {
	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: addrs,
	})
	if err != nil {
		return nil, err
	}
	return hdfsClientAdapter{client}, nil
}

func (ec *endpointCache) closeAll() error {
	var first error
	for alias, c := range ec.conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(ec.conns, alias)
	}
	return first
}

// clockSource is the narrow slice of clock.Clock this package needs;
// declared locally so vfd doesn't have to import clock just for the
// interface name used in struct fields below.
type clockSource interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
