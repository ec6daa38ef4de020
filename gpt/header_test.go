// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swysocki/gpt-image/geometry"
	"github.com/swysocki/gpt-image/gpt"
)

func TestHeaderRoundTrip(t *testing.T) {
	geo, err := geometry.New(2*1024*1024, 512)
	require.NoError(t, err)

	diskGUID := uuid.New()
	h := gpt.NewPrimary(geo, diskGUID)
	h.PartitionArrayCRC32 = 0xAB54D286

	buf := h.Marshal()
	assert.Len(t, buf, geometry.HeaderLength)

	var got gpt.Header

	require.NoError(t, got.Unmarshal(buf))
	assert.Equal(t, h.HeaderCRC32, got.HeaderCRC32)
	assert.Equal(t, h.DiskGUID, got.DiskGUID)
	assert.Equal(t, h.MyLBA, got.MyLBA)
	assert.Equal(t, h.AlternateLBA, got.AlternateLBA)
	assert.Equal(t, h.PartitionArrayCRC32, got.PartitionArrayCRC32)
}

func TestPrimaryAndBackupSwapLBAs(t *testing.T) {
	geo, err := geometry.New(2*1024*1024, 512)
	require.NoError(t, err)

	diskGUID := uuid.New()
	primary := gpt.NewPrimary(geo, diskGUID)
	backup := gpt.NewBackup(geo, diskGUID)

	assert.Equal(t, geo.PrimaryHeaderLBA(), primary.MyLBA)
	assert.Equal(t, geo.BackupHeaderLBA(), primary.AlternateLBA)
	assert.Equal(t, geo.BackupHeaderLBA(), backup.MyLBA)
	assert.Equal(t, geo.PrimaryHeaderLBA(), backup.AlternateLBA)

	assert.Equal(t, geo.PrimaryArrayLBA(), primary.PartitionEntryLBA)
	assert.Equal(t, geo.BackupArrayLBA(), backup.PartitionEntryLBA)

	assert.Equal(t, primary.DiskGUID, backup.DiskGUID)
}

func TestHeaderRejectsZeroedFrame(t *testing.T) {
	var h gpt.Header

	require.ErrorIs(t, h.Unmarshal(make([]byte, geometry.HeaderLength)), gpt.ErrBadSignature)
}

func TestHeaderRejectsTamperedCRC(t *testing.T) {
	geo, err := geometry.New(2*1024*1024, 512)
	require.NoError(t, err)

	h := gpt.NewPrimary(geo, uuid.New())
	buf := h.Marshal()
	buf[60] ^= 0xFF // corrupt a byte inside the disk_guid field

	var got gpt.Header

	require.ErrorIs(t, got.Unmarshal(buf), gpt.ErrHeaderChecksum)
}
