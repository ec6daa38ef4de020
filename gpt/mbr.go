// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/swysocki/gpt-image/geometry"
)

// mbrSize is the length in bytes of a protective MBR sector.
const mbrSize = 512

const (
	mbrPartitionOffset = 446
	mbrPartitionLength = 16
	mbrSignatureOffset = 510
)

var mbrSignature = [2]byte{0x55, 0xAA}

// mbrStartCHS and mbrEndCHS are the conventional CHS values written into a
// protective MBR partition record; real software ignores them in favour of
// the LBA fields, but gdisk and sfdisk both check they look sane.
var (
	mbrStartCHS = [3]byte{0x00, 0x02, 0x00}
	mbrEndCHS   = [3]byte{0xff, 0xff, 0xff}
)

// gptProtectivePartitionType is the MBR partition type byte that marks a
// protective MBR partition record ("EE").
const gptProtectivePartitionType = 0xEE

// MBR is the protective MBR record written at LBA 0 of a GPT disk: 446
// bytes of unused boot code, one partition record describing the whole
// disk as a single type-0xEE partition, and the 0x55AA boot signature.
type MBR struct {
	BootIndicator  byte
	PartitionType  byte
	StartSector    uint32
	SizeInSectors  uint32
}

// NewProtectiveMBR builds the protective MBR record for a disk with the
// given Geometry. SizeInSectors is clamped to 0xFFFFFFFF for disks whose
// last sector index does not fit in 32 bits.
func NewProtectiveMBR(g geometry.Geometry) MBR {
	size := g.TotalSectors() - 1
	if size > math.MaxUint32 {
		size = math.MaxUint32
	}

	return MBR{
		BootIndicator: 0,
		PartitionType: gptProtectivePartitionType,
		StartSector:   1,
		SizeInSectors: uint32(size),
	}
}

// Marshal packs the MBR into its fixed 512-byte on-disk frame.
func (m MBR) Marshal() []byte {
	buf := make([]byte, mbrSize)

	rec := buf[mbrPartitionOffset : mbrPartitionOffset+mbrPartitionLength]
	rec[0] = m.BootIndicator
	copy(rec[1:4], mbrStartCHS[:])
	rec[4] = m.PartitionType
	copy(rec[5:8], mbrEndCHS[:])
	binary.LittleEndian.PutUint32(rec[8:12], m.StartSector)
	binary.LittleEndian.PutUint32(rec[12:16], m.SizeInSectors)

	copy(buf[mbrSignatureOffset:], mbrSignature[:])

	return buf
}

// Unmarshal parses a 512-byte protective MBR frame, validating the boot
// signature. The partition type byte is read as stored and not checked.
func (m *MBR) Unmarshal(buf []byte) error {
	if len(buf) != mbrSize {
		return fmt.Errorf("%w: mbr frame is %d bytes, want %d", ErrInvalidFrameLength, len(buf), mbrSize)
	}

	if buf[mbrSignatureOffset] != mbrSignature[0] || buf[mbrSignatureOffset+1] != mbrSignature[1] {
		return fmt.Errorf("%w: bad mbr boot signature", ErrBadSignature)
	}

	rec := buf[mbrPartitionOffset : mbrPartitionOffset+mbrPartitionLength]

	m.BootIndicator = rec[0]
	m.PartitionType = rec[4]
	m.StartSector = binary.LittleEndian.Uint32(rec[8:12])
	m.SizeInSectors = binary.LittleEndian.Uint32(rec[12:16])

	return nil
}
