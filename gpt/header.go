// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/swysocki/gpt-image/geometry"
)

// headerSignature is the required on-disk GPT header signature, "EFI PART".
var headerSignature = [8]byte{'E', 'F', 'I', ' ', 'P', 'A', 'R', 'T'}

// headerRevision is the only GPT header revision this library produces or
// accepts: 1.0.
var headerRevision = [4]byte{0x00, 0x00, 0x01, 0x00}

const (
	headerFrameLength = geometry.HeaderLength

	offSignature  = 0
	offRevision   = 8
	offHeaderSize = 12
	offCRC32      = 16
	offReserved   = 20
	offMyLBA      = 24
	offAltLBA     = 32
	offFirstUsable = 40
	offLastUsable  = 48
	offDiskGUID    = 56
	offEntriesLBA  = 72
	offEntryCount  = 80
	offEntrySize   = 84
	offEntriesCRC  = 88
)

// Header is one copy (primary or backup) of the GPT header. Two instances
// share a disk GUID and partition entry array checksum but disagree on
// which LBA is "mine" and which is the alternate.
type Header struct {
	MyLBA               uint64
	AlternateLBA        uint64
	FirstUsableLBA      uint64
	LastUsableLBA       uint64
	DiskGUID            uuid.UUID
	PartitionEntryLBA   uint64
	NumberOfEntries     uint32
	SizeOfEntry         uint32
	PartitionArrayCRC32 uint32

	// HeaderCRC32 is populated by Marshal and left in place by Unmarshal
	// for callers that want to inspect the on-disk value directly; it is
	// not an input to Marshal.
	HeaderCRC32 uint32
}

// NewPrimary builds the primary header for a disk with the given geometry
// and disk GUID. Its PartitionArrayCRC32 is left zero; the owning Table
// fills it in during Update.
func NewPrimary(g geometry.Geometry, diskGUID uuid.UUID) Header {
	return Header{
		MyLBA:             g.PrimaryHeaderLBA(),
		AlternateLBA:      g.BackupHeaderLBA(),
		FirstUsableLBA:    g.FirstUsableLBA(),
		LastUsableLBA:     g.LastUsableLBA(),
		DiskGUID:          diskGUID,
		PartitionEntryLBA: g.PrimaryArrayLBA(),
		NumberOfEntries:   geometry.ArrayEntryCount,
		SizeOfEntry:       geometry.ArrayEntryLength,
	}
}

// NewBackup builds the backup header for a disk with the given geometry and
// disk GUID. It is constructed independently from NewPrimary, not by
// mutating a primary instance in place, so the two can never alias.
func NewBackup(g geometry.Geometry, diskGUID uuid.UUID) Header {
	return Header{
		MyLBA:             g.BackupHeaderLBA(),
		AlternateLBA:      g.PrimaryHeaderLBA(),
		FirstUsableLBA:    g.FirstUsableLBA(),
		LastUsableLBA:     g.LastUsableLBA(),
		DiskGUID:          diskGUID,
		PartitionEntryLBA: g.BackupArrayLBA(),
		NumberOfEntries:   geometry.ArrayEntryCount,
		SizeOfEntry:       geometry.ArrayEntryLength,
	}
}

// Marshal packs the header into its 92-byte on-disk frame, computing
// HeaderCRC32 over the frame with the checksum field zeroed, as required
// by the UEFI specification. The receiver's HeaderCRC32 is updated to
// match.
func (h *Header) Marshal() []byte {
	buf := make([]byte, headerFrameLength)

	copy(buf[offSignature:], headerSignature[:])
	copy(buf[offRevision:], headerRevision[:])
	binary.LittleEndian.PutUint32(buf[offHeaderSize:], headerFrameLength)
	binary.LittleEndian.PutUint32(buf[offCRC32:], 0)
	binary.LittleEndian.PutUint32(buf[offReserved:], 0)
	binary.LittleEndian.PutUint64(buf[offMyLBA:], h.MyLBA)
	binary.LittleEndian.PutUint64(buf[offAltLBA:], h.AlternateLBA)
	binary.LittleEndian.PutUint64(buf[offFirstUsable:], h.FirstUsableLBA)
	binary.LittleEndian.PutUint64(buf[offLastUsable:], h.LastUsableLBA)

	guid := guidToDisk(h.DiskGUID)
	copy(buf[offDiskGUID:], guid[:])

	binary.LittleEndian.PutUint64(buf[offEntriesLBA:], h.PartitionEntryLBA)
	binary.LittleEndian.PutUint32(buf[offEntryCount:], h.NumberOfEntries)
	binary.LittleEndian.PutUint32(buf[offEntrySize:], h.SizeOfEntry)
	binary.LittleEndian.PutUint32(buf[offEntriesCRC:], h.PartitionArrayCRC32)

	crc := crc32.ChecksumIEEE(buf)
	binary.LittleEndian.PutUint32(buf[offCRC32:], crc)
	h.HeaderCRC32 = crc

	return buf
}

// Unmarshal parses a 92-byte GPT header frame, validating signature,
// revision, header size, and checksum.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) != headerFrameLength {
		return fmt.Errorf("%w: header frame is %d bytes, want %d", ErrInvalidFrameLength, len(buf), headerFrameLength)
	}

	var sig [8]byte
	copy(sig[:], buf[offSignature:offSignature+8])

	if sig != headerSignature {
		return fmt.Errorf("%w: got %q", ErrBadSignature, sig[:])
	}

	var rev [4]byte
	copy(rev[:], buf[offRevision:offRevision+4])

	if rev != headerRevision {
		return fmt.Errorf("%w: got % x", ErrBadRevision, rev[:])
	}

	if size := binary.LittleEndian.Uint32(buf[offHeaderSize:]); size != headerFrameLength {
		return fmt.Errorf("%w: got %d, want %d", ErrBadHeaderSize, size, headerFrameLength)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[offCRC32:])

	check := make([]byte, headerFrameLength)
	copy(check, buf)
	binary.LittleEndian.PutUint32(check[offCRC32:], 0)

	if computed := crc32.ChecksumIEEE(check); computed != storedCRC {
		return fmt.Errorf("%w: stored %#x, computed %#x", ErrHeaderChecksum, storedCRC, computed)
	}

	h.HeaderCRC32 = storedCRC
	h.MyLBA = binary.LittleEndian.Uint64(buf[offMyLBA:])
	h.AlternateLBA = binary.LittleEndian.Uint64(buf[offAltLBA:])
	h.FirstUsableLBA = binary.LittleEndian.Uint64(buf[offFirstUsable:])
	h.LastUsableLBA = binary.LittleEndian.Uint64(buf[offLastUsable:])

	var guid [16]byte
	copy(guid[:], buf[offDiskGUID:offDiskGUID+16])
	h.DiskGUID = guidFromDisk(guid)

	h.PartitionEntryLBA = binary.LittleEndian.Uint64(buf[offEntriesLBA:])
	h.NumberOfEntries = binary.LittleEndian.Uint32(buf[offEntryCount:])
	h.SizeOfEntry = binary.LittleEndian.Uint32(buf[offEntrySize:])
	h.PartitionArrayCRC32 = binary.LittleEndian.Uint32(buf[offEntriesCRC:])

	return nil
}
