// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt_test

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swysocki/gpt-image/geometry"
	"github.com/swysocki/gpt-image/gpt"
)

func newGeo(t *testing.T, totalBytes uint64) geometry.Geometry {
	t.Helper()

	geo, err := geometry.New(totalBytes, 512)
	require.NoError(t, err)

	return geo
}

// TestEmptyArrayCRC32 pins the canonical CRC32 of an all-zero 128-slot
// partition array: 0xAB54D286 (2874462854).
func TestEmptyArrayCRC32(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	buf, err := a.Marshal()
	require.NoError(t, err)
	assert.Len(t, buf, geometry.ArrayLength)

	assert.EqualValues(t, 0xAB54D286, crc32.ChecksumIEEE(buf))
	assert.EqualValues(t, 2874462854, crc32.ChecksumIEEE(buf))
}

func TestAddPartitionPlacement(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))
	assert.EqualValues(t, 40, p1.StagedFirstLBA())
	assert.EqualValues(t, 43, p1.StagedLastLBA())

	p2 := gpt.NewPartitionEntry("p2", gpt.TypeLinuxFilesystem, 3072)
	require.NoError(t, a.Add(p2))
	assert.EqualValues(t, 48, p2.StagedFirstLBA())
	assert.EqualValues(t, 53, p2.StagedLastLBA())
}

func TestAddPartitionOverflow(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p := gpt.NewPartitionEntry("too-big", gpt.TypeLinuxFilesystem, 10*1024*1024)
	err := a.Add(p)
	require.ErrorIs(t, err, gpt.ErrOverflow)
	assert.Empty(t, a.Entries())
}

func TestAddPartitionTooSmall(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p := gpt.NewPartitionEntry("tiny", gpt.TypeLinuxFilesystem, 10)
	err := a.Add(p)
	require.ErrorIs(t, err, gpt.ErrTooSmall)
}

func TestRemoveRecomputesFollowingPlacement(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))
	p2 := gpt.NewPartitionEntry("p2", gpt.TypeLinuxFilesystem, 3072)
	require.NoError(t, a.Add(p2))

	require.NoError(t, a.Remove("p1"))

	remaining, ok := a.Find("p2")
	require.True(t, ok)
	assert.EqualValues(t, 40, remaining.StagedFirstLBA())
	assert.EqualValues(t, 45, remaining.StagedLastLBA())
}

func TestRemoveNotFound(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	require.ErrorIs(t, a.Remove("nope"), gpt.ErrNotFound)
}

func TestFindByGUIDCaseInsensitive(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))

	found, ok := a.Find(p1.PartitionGUID.String())
	require.True(t, ok)
	assert.Same(t, p1, found)
}

func TestResizeRecomputesPlacement(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))
	p2 := gpt.NewPartitionEntry("p2", gpt.TypeLinuxFilesystem, 1024)
	require.NoError(t, a.Add(p2))

	require.NoError(t, a.Resize("p1", 4096))

	assert.EqualValues(t, 40, p1.StagedFirstLBA())
	assert.EqualValues(t, 47, p1.StagedLastLBA())
	assert.Greater(t, p2.StagedFirstLBA(), p1.StagedLastLBA())
}

func TestResizeOverflowLeavesArrayUnchanged(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))

	oldFirst, oldLast := p1.StagedFirstLBA(), p1.StagedLastLBA()

	err := a.Resize("p1", 10*1024*1024)
	require.ErrorIs(t, err, gpt.ErrOverflow)

	assert.Equal(t, oldFirst, p1.StagedFirstLBA())
	assert.Equal(t, oldLast, p1.StagedLastLBA())
}

func TestPlanRelocationsSkipsNewPartitions(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))

	assert.Empty(t, a.PlanRelocations())
}

func TestPlanRelocationsAfterRemoveCompaction(t *testing.T) {
	a := gpt.NewPartitionArray(newGeo(t, 2*1024*1024))

	p1 := gpt.NewPartitionEntry("p1", gpt.TypeLinuxFilesystem, 2048)
	require.NoError(t, a.Add(p1))
	p2 := gpt.NewPartitionEntry("p2", gpt.TypeLinuxFilesystem, 3072)
	require.NoError(t, a.Add(p2))

	a.Commit() // pretend this layout is already on disk

	require.NoError(t, a.Remove("p1"))

	plan := a.PlanRelocations()
	require.Len(t, plan, 1)
	assert.Equal(t, p2, plan[0].Entry)
	assert.EqualValues(t, 48*512, plan[0].SrcByte)
	assert.EqualValues(t, 40*512, plan[0].DstByte)
	assert.EqualValues(t, 3072, plan[0].Length)

	a.Commit()
	assert.False(t, p2.NeedsCommit())
	assert.Equal(t, p2.StagedFirstLBA(), p2.FirstLBA())
}
