// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geometry computes the fixed layout of a GPT disk image from its
// raw size and sector size. It holds no file handle and performs no I/O;
// every value is derived once at construction and never mutated.
package geometry

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned by New when the requested size or sector
// size cannot host a valid GPT layout.
var ErrInvalidGeometry = errors.New("invalid geometry")

const (
	// HeaderLength is the length in bytes of the on-disk GPT header frame,
	// before zero-padding to a full sector.
	HeaderLength = 92

	// ArrayEntryCount is the fixed number of partition entry slots.
	ArrayEntryCount = 128

	// ArrayEntryLength is the length in bytes of one partition entry frame.
	ArrayEntryLength = 128

	// ArrayLength is the total length in bytes of the partition entry
	// array: ArrayEntryCount * ArrayEntryLength.
	ArrayLength = ArrayEntryCount * ArrayEntryLength

	// minTotalSectors is the minimum number of sectors a disk must have to
	// fit the MBR, both headers, both arrays, and at least one usable
	// sector.
	minTotalSectors = 67

	// minSectorSize is the smallest sector size this library will accept.
	minSectorSize = 512
)

// Geometry is the immutable set of LBA and byte offsets derived from a
// disk's total size and sector size.
type Geometry struct {
	totalBytes uint64
	sectorSize uint32

	totalSectors uint64

	firstUsableLBA uint64
	lastUsableLBA  uint64

	primaryHeaderLBA uint64
	primaryArrayLBA  uint64

	backupHeaderLBA uint64
	backupArrayLBA  uint64
}

// New derives a Geometry from a disk size in bytes and a sector size. It
// fails with ErrInvalidGeometry if the resulting sector count is too small
// to hold a valid GPT layout, or if sectorSize is not a positive multiple
// of 512.
func New(totalBytes uint64, sectorSize uint32) (Geometry, error) {
	if sectorSize == 0 || sectorSize%minSectorSize != 0 {
		return Geometry{}, fmt.Errorf("%w: sector size %d is not a positive multiple of %d", ErrInvalidGeometry, sectorSize, minSectorSize)
	}

	totalSectors := totalBytes / uint64(sectorSize)
	if totalSectors < minTotalSectors {
		return Geometry{}, fmt.Errorf("%w: %d sectors is below the minimum of %d", ErrInvalidGeometry, totalSectors, minTotalSectors)
	}

	return Geometry{
		totalBytes:       totalBytes,
		sectorSize:       sectorSize,
		totalSectors:     totalSectors,
		firstUsableLBA:   34,
		lastUsableLBA:    totalSectors - 34,
		primaryHeaderLBA: 1,
		primaryArrayLBA:  2,
		backupHeaderLBA:  totalSectors - 1,
		backupArrayLBA:   totalSectors - 33,
	}, nil
}

// SectorSize returns the sector size in bytes this Geometry was derived for.
func (g Geometry) SectorSize() uint32 { return g.sectorSize }

// TotalBytes returns the total disk size in bytes.
func (g Geometry) TotalBytes() uint64 { return g.totalBytes }

// TotalSectors returns the total number of addressable sectors.
func (g Geometry) TotalSectors() uint64 { return g.totalSectors }

// FirstUsableLBA returns the first LBA available for partition data.
func (g Geometry) FirstUsableLBA() uint64 { return g.firstUsableLBA }

// LastUsableLBA returns the last LBA available for partition data.
func (g Geometry) LastUsableLBA() uint64 { return g.lastUsableLBA }

// PrimaryHeaderLBA returns the LBA of the primary GPT header.
func (g Geometry) PrimaryHeaderLBA() uint64 { return g.primaryHeaderLBA }

// PrimaryArrayLBA returns the starting LBA of the primary partition array.
func (g Geometry) PrimaryArrayLBA() uint64 { return g.primaryArrayLBA }

// BackupHeaderLBA returns the LBA of the backup GPT header.
func (g Geometry) BackupHeaderLBA() uint64 { return g.backupHeaderLBA }

// BackupArrayLBA returns the starting LBA of the backup partition array.
func (g Geometry) BackupArrayLBA() uint64 { return g.backupArrayLBA }

// LBAToByte converts an LBA to a byte offset from the start of the image.
func (g Geometry) LBAToByte(lba uint64) int64 { return int64(lba) * int64(g.sectorSize) }

// PrimaryHeaderByte is the byte offset of the primary header.
func (g Geometry) PrimaryHeaderByte() int64 { return g.LBAToByte(g.primaryHeaderLBA) }

// PrimaryArrayByte is the byte offset of the primary partition array.
func (g Geometry) PrimaryArrayByte() int64 { return g.LBAToByte(g.primaryArrayLBA) }

// BackupHeaderByte is the byte offset of the backup header.
func (g Geometry) BackupHeaderByte() int64 { return g.LBAToByte(g.backupHeaderLBA) }

// BackupArrayByte is the byte offset of the backup partition array.
func (g Geometry) BackupArrayByte() int64 { return g.LBAToByte(g.backupArrayLBA) }

// SectorsForBytes returns the number of whole sectors required to hold n
// bytes, rounding up.
func (g Geometry) SectorsForBytes(n uint64) uint64 {
	s := uint64(g.sectorSize)

	return (n + s - 1) / s
}
