// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swysocki/gpt-image/geometry"
)

func TestNew2MiB(t *testing.T) {
	g, err := geometry.New(2*1024*1024, 512)
	require.NoError(t, err)

	assert.EqualValues(t, 4096, g.TotalSectors())
	assert.EqualValues(t, 34, g.FirstUsableLBA())
	assert.EqualValues(t, 4062, g.LastUsableLBA())
	assert.EqualValues(t, 1, g.PrimaryHeaderLBA())
	assert.EqualValues(t, 2, g.PrimaryArrayLBA())
	assert.EqualValues(t, 4095, g.BackupHeaderLBA())
	assert.EqualValues(t, 4063, g.BackupArrayLBA())
}

func TestNewRejectsTooSmall(t *testing.T) {
	_, err := geometry.New(66*512, 512)
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}

func TestNewRejectsBadSectorSize(t *testing.T) {
	for _, sz := range []uint32{0, 1, 511, 513} {
		_, err := geometry.New(10*1024*1024, sz)
		require.ErrorIsf(t, err, geometry.ErrInvalidGeometry, "sector size %d", sz)
	}
}

func TestByteOffsets(t *testing.T) {
	g, err := geometry.New(10*1024*1024, 512)
	require.NoError(t, err)

	assert.EqualValues(t, 512, g.PrimaryHeaderByte())
	assert.EqualValues(t, 1024, g.PrimaryArrayByte())
	assert.Equal(t, g.LBAToByte(g.BackupHeaderLBA()), g.BackupHeaderByte())
	assert.Equal(t, g.LBAToByte(g.BackupArrayLBA()), g.BackupArrayByte())
}

func TestSectorsForBytes(t *testing.T) {
	g, err := geometry.New(10*1024*1024, 512)
	require.NoError(t, err)

	assert.EqualValues(t, 4, g.SectorsForBytes(2048))
	assert.EqualValues(t, 5, g.SectorsForBytes(2049))
	assert.EqualValues(t, 0, g.SectorsForBytes(0))
}
