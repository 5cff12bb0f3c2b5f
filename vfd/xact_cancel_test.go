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
)

func TestAtXactCancel_SeversPhysicallyOpenDFSSlots(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestDFSManager(t)

	vfd, err := m.PathNameOpen(ctx, "hdfs://nn1:8020/f", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)
	_, err = m.FileWrite(ctx, vfd, []byte("hello"))
	require.NoError(t, err)

	s := m.table.get(vfd)
	require.True(t, s.physicallyOpen())

	m.AtXactCancel()

	assert.False(t, s.physicallyOpen(), "xact cancel must close every physically open dfs slot")
	assert.True(t, s.isUsed(), "the slot itself stays allocated; only the physical handle is severed")
}

func TestAtXactCancel_IgnoresLocalSlots(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10)
	path := filepath.Join(t.TempDir(), "local")

	vfd, err := m.PathNameOpen(ctx, path, os.O_RDWR|os.O_CREATE, 0600)
	require.NoError(t, err)
	s := m.table.get(vfd)
	require.True(t, s.physicallyOpen())

	m.AtXactCancel()

	assert.True(t, s.physicallyOpen(), "local slots are untouched by xact cancel; only dfs state is half-written")
}

func TestAtXactCancel_ToleratesAlreadyClosedHandle(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestDFSManager(t)

	vfd, err := m.PathNameOpen(ctx, "hdfs://nn1:8020/f", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)

	assert.NotPanics(t, func() { m.AtXactCancel() })
	assert.NotPanics(t, func() { m.AtXactCancel() })
	_ = vfd
}
