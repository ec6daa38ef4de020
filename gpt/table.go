// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"bytes"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/swysocki/gpt-image/geometry"
)

// Table owns the protective MBR, both GPT headers, the disk GUID, and the
// partition array for one disk image. It is responsible for the checksum
// discipline described in Update: the partition array checksum is stable
// across both headers before either header's own checksum is computed.
type Table struct {
	Geometry geometry.Geometry
	DiskGUID uuid.UUID

	MBR    MBR
	Primary Header
	Backup  Header

	Array *PartitionArray
}

// New builds an empty Table for a fresh disk of the given geometry. A
// random disk GUID is generated.
func New(geo geometry.Geometry) *Table {
	return NewWithGUID(geo, uuid.New())
}

// NewWithGUID builds an empty Table with a caller-supplied disk GUID,
// letting tests and callers reproduce a known layout.
func NewWithGUID(geo geometry.Geometry, diskGUID uuid.UUID) *Table {
	return &Table{
		Geometry: geo,
		DiskGUID: diskGUID,
		MBR:      NewProtectiveMBR(geo),
		Primary:  NewPrimary(geo, diskGUID),
		Backup:   NewBackup(geo, diskGUID),
		Array:    NewPartitionArray(geo),
	}
}

// Update recomputes the partition array and header checksums in the order
// the UEFI specification requires: the array is marshalled once and its
// CRC32 is stored in both headers before either header's own CRC32 is
// computed. Neither header's CRC32 is trustworthy until Update has run.
func (t *Table) Update() error {
	arrayBytes, err := t.Array.Marshal()
	if err != nil {
		return fmt.Errorf("gpt: marshalling partition array: %w", err)
	}

	arrayCRC := crc32.ChecksumIEEE(arrayBytes)

	t.Primary.PartitionArrayCRC32 = arrayCRC
	t.Backup.PartitionArrayCRC32 = arrayCRC

	// Marshal computes and stores each header's own CRC32 as a side
	// effect; both array CRCs above must be set before either call.
	t.Primary.Marshal()
	t.Backup.Marshal()

	return nil
}

// ArrayBytes returns the marshalled 16 KiB partition array. Callers should
// call Update first so the returned bytes match what the headers
// checksum.
func (t *Table) ArrayBytes() ([]byte, error) {
	return t.Array.Marshal()
}

// Decode reconstructs a Table from raw bytes already read from an image:
// the protective MBR, both header frames, and both partition array frames.
// It fails with ErrTableMismatch if the primary and backup array bytes
// differ. All I/O is the caller's (Image's) responsibility; this function
// only unpacks.
func Decode(geo geometry.Geometry, mbrBytes, primaryHeaderBytes, backupHeaderBytes, primaryArrayBytes, backupArrayBytes []byte) (*Table, error) {
	var mbr MBR
	if err := mbr.Unmarshal(mbrBytes); err != nil {
		return nil, fmt.Errorf("gpt: decoding protective mbr: %w", err)
	}

	var primary Header
	if err := primary.Unmarshal(primaryHeaderBytes); err != nil {
		return nil, fmt.Errorf("gpt: decoding primary header: %w", err)
	}

	var backup Header
	if err := backup.Unmarshal(backupHeaderBytes); err != nil {
		return nil, fmt.Errorf("gpt: decoding backup header: %w", err)
	}

	if !bytes.Equal(primaryArrayBytes, backupArrayBytes) {
		return nil, fmt.Errorf("%w", ErrTableMismatch)
	}

	array, err := UnmarshalArray(geo, primaryArrayBytes)
	if err != nil {
		return nil, fmt.Errorf("gpt: decoding partition array: %w", err)
	}

	return &Table{
		Geometry: geo,
		DiskGUID: primary.DiskGUID,
		MBR:      mbr,
		Primary:  primary,
		Backup:   backup,
		Array:    array,
	}, nil
}
