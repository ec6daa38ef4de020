// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/swysocki/gpt-image/geometry"
)

// DefaultAlignment is the default placement granularity for new
// partitions, in sectors (4 KiB at a 512-byte sector size).
const DefaultAlignment = 8

// AttributeFlags is the 64-bit partition attribute bitset. Only bits
// 60-63 are given names; the remaining bits are preserved round-trip but
// have no recognised meaning here.
type AttributeFlags uint64

// Recognised attribute bits.
const (
	AttributeReadOnly AttributeFlags = 1 << 60
	AttributeShadowCopy AttributeFlags = 1 << 61
	AttributeHidden     AttributeFlags = 1 << 62
	AttributeNoDriveLetter AttributeFlags = 1 << 63
)

// Set returns the flags with bit ORed in. Passing 0 clears all bits,
// matching the "none" sentinel in the external interface.
func (a AttributeFlags) Set(bit AttributeFlags) AttributeFlags {
	if bit == 0 {
		return 0
	}

	return a | bit
}

// Clear returns the flags with all bits cleared.
func (a AttributeFlags) Clear() AttributeFlags { return 0 }

// List returns the set bit positions, highest first.
func (a AttributeFlags) List() []int {
	var bits []int

	for i := 63; i >= 0; i-- {
		if a&(1<<uint(i)) != 0 {
			bits = append(bits, i)
		}
	}

	return bits
}

var utf16Codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

const (
	entryFrameLength = geometry.ArrayEntryLength

	entryOffTypeGUID   = 0
	entryOffPartGUID   = 16
	entryOffFirstLBA   = 32
	entryOffLastLBA    = 40
	entryOffAttributes = 48
	entryOffName       = 56
	entryNameLength    = 72
)

// PartitionEntry is a single partition record. FirstLBA, LastLBA, and Size
// each carry a staged value (what the next commit will apply) and a
// committed value (what is currently in effect on disk). Mutating methods
// update only the staged side; PartitionArray.Commit copies staged into
// committed once payload relocation has happened.
type PartitionEntry struct {
	TypeGUID      uuid.UUID
	PartitionGUID uuid.UUID
	Name          string
	Attributes    AttributeFlags

	// Alignment is the sector granularity used to place this entry. It
	// affects placement only and is not part of the on-disk frame.
	Alignment uint64

	committedFirstLBA uint64
	committedLastLBA  uint64
	committedSize     uint64

	stagedFirstLBA uint64
	stagedLastLBA  uint64
	stagedSize     uint64
}

// NewPartitionEntry builds a partition entry with the given name, type
// GUID, and requested size in bytes. A random partition GUID is generated.
// The entry is not placed until the owning PartitionArray allocates LBAs
// for it.
func NewPartitionEntry(name string, typeGUID uuid.UUID, size uint64) *PartitionEntry {
	return &PartitionEntry{
		TypeGUID:      typeGUID,
		PartitionGUID: uuid.New(),
		Name:          name,
		Alignment:     DefaultAlignment,
		stagedSize:    size,
	}
}

// FirstLBA returns the currently committed first LBA.
func (p *PartitionEntry) FirstLBA() uint64 { return p.committedFirstLBA }

// LastLBA returns the currently committed last LBA.
func (p *PartitionEntry) LastLBA() uint64 { return p.committedLastLBA }

// Size returns the currently committed size in bytes.
func (p *PartitionEntry) Size() uint64 { return p.committedSize }

// StagedFirstLBA returns the pending first LBA, valid after the next
// PartitionArray allocation pass.
func (p *PartitionEntry) StagedFirstLBA() uint64 { return p.stagedFirstLBA }

// StagedLastLBA returns the pending last LBA.
func (p *PartitionEntry) StagedLastLBA() uint64 { return p.stagedLastLBA }

// StagedSize returns the pending size in bytes.
func (p *PartitionEntry) StagedSize() uint64 { return p.stagedSize }

// Resize sets the staged size. The staged LBAs are not recomputed until
// the owning PartitionArray re-runs allocation.
func (p *PartitionEntry) Resize(size uint64) { p.stagedSize = size }

// NeedsCommit reports whether any staged field differs from its committed
// counterpart.
func (p *PartitionEntry) NeedsCommit() bool {
	return p.stagedFirstLBA != p.committedFirstLBA ||
		p.stagedLastLBA != p.committedLastLBA ||
		p.stagedSize != p.committedSize
}

// commitStage copies staged values into committed. Called by
// PartitionArray after payload relocation has moved any affected bytes.
func (p *PartitionEntry) commitStage() {
	p.committedFirstLBA = p.stagedFirstLBA
	p.committedLastLBA = p.stagedLastLBA
	p.committedSize = p.stagedSize
}

// isEmpty reports whether this slot represents an unused entry (all-zero
// type GUID), per the on-disk convention.
func (p *PartitionEntry) isEmpty() bool {
	return p.TypeGUID == uuid.Nil
}

// marshal packs the entry's committed state into its 128-byte on-disk
// frame, with the name encoded as UTF-16LE and zero-padded to 72 bytes.
func (p *PartitionEntry) marshal() ([]byte, error) {
	buf := make([]byte, entryFrameLength)

	if p.isEmpty() {
		return buf, nil
	}

	typeGUID := guidToDisk(p.TypeGUID)
	copy(buf[entryOffTypeGUID:], typeGUID[:])

	partGUID := guidToDisk(p.PartitionGUID)
	copy(buf[entryOffPartGUID:], partGUID[:])

	binary.LittleEndian.PutUint64(buf[entryOffFirstLBA:], p.committedFirstLBA)
	binary.LittleEndian.PutUint64(buf[entryOffLastLBA:], p.committedLastLBA)
	binary.LittleEndian.PutUint64(buf[entryOffAttributes:], uint64(p.Attributes))

	nameBytes, err := utf16Codec.NewEncoder().Bytes([]byte(p.Name))
	if err != nil {
		return nil, fmt.Errorf("gpt: encoding partition name %q: %w", p.Name, err)
	}

	if len(nameBytes) > entryNameLength {
		return nil, fmt.Errorf("gpt: partition name %q encodes to %d bytes, max %d", p.Name, len(nameBytes), entryNameLength)
	}

	copy(buf[entryOffName:entryOffName+entryNameLength], nameBytes)

	return buf, nil
}

// unmarshalEntry parses a 128-byte partition entry frame. A frame with an
// all-zero type GUID is an empty slot and is returned with ok=false.
func unmarshalEntry(buf []byte, sectorSize uint32) (entry *PartitionEntry, ok bool, err error) {
	if len(buf) != entryFrameLength {
		return nil, false, fmt.Errorf("%w: entry frame is %d bytes, want %d", ErrInvalidFrameLength, len(buf), entryFrameLength)
	}

	var typeGUID [16]byte
	copy(typeGUID[:], buf[entryOffTypeGUID:entryOffTypeGUID+16])

	t := guidFromDisk(typeGUID)
	if t == uuid.Nil {
		return nil, false, nil
	}

	var partGUID [16]byte
	copy(partGUID[:], buf[entryOffPartGUID:entryOffPartGUID+16])

	firstLBA := binary.LittleEndian.Uint64(buf[entryOffFirstLBA:])
	lastLBA := binary.LittleEndian.Uint64(buf[entryOffLastLBA:])
	attrs := binary.LittleEndian.Uint64(buf[entryOffAttributes:])

	nameBytes := trimUTF16Padding(buf[entryOffName : entryOffName+entryNameLength])

	decoded, decErr := utf16Codec.NewDecoder().Bytes(nameBytes)
	if decErr != nil {
		return nil, false, fmt.Errorf("gpt: decoding partition name: %w", decErr)
	}

	size := (lastLBA - firstLBA + 1) * uint64(sectorSize)

	e := &PartitionEntry{
		TypeGUID:          t,
		PartitionGUID:     guidFromDisk(partGUID),
		Name:              string(decoded),
		Attributes:        AttributeFlags(attrs),
		Alignment:         DefaultAlignment,
		committedFirstLBA: firstLBA,
		committedLastLBA:  lastLBA,
		committedSize:     size,
		stagedFirstLBA:    firstLBA,
		stagedLastLBA:     lastLBA,
		stagedSize:        size,
	}

	return e, true, nil
}

// trimUTF16Padding drops trailing zero UTF-16 code units (two zero bytes
// at a time) so the decoder does not emit NUL runes into the name.
func trimUTF16Padding(b []byte) []byte {
	end := len(b)

	for end >= 2 && b[end-2] == 0 && b[end-1] == 0 {
		end -= 2
	}

	return b[:end]
}
