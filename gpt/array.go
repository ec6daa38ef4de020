// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"fmt"
	"strings"

	"github.com/siderolabs/gen/xslices"

	"github.com/swysocki/gpt-image/geometry"
)

// Relocation describes one partition's payload move: length bytes must be
// copied from SrcByte to DstByte before the new table can be written.
// Computing this is pure; performing the copy is the caller's (Image's)
// responsibility.
type Relocation struct {
	Entry    *PartitionEntry
	SrcByte  int64
	DstByte  int64
	Length   int64
}

// PartitionArray is the ordered collection of partition entries for one
// Table. Only non-empty entries are kept in memory; Marshal pads the
// remaining slots with zero bytes.
type PartitionArray struct {
	geo     geometry.Geometry
	entries []*PartitionEntry
}

// NewPartitionArray returns an empty array sized for the given geometry.
func NewPartitionArray(geo geometry.Geometry) *PartitionArray {
	return &PartitionArray{geo: geo}
}

// Entries returns the array's entries in insertion order. The returned
// slice is owned by the caller; mutating it does not affect the array.
func (a *PartitionArray) Entries() []*PartitionEntry {
	out := make([]*PartitionEntry, len(a.entries))
	copy(out, a.entries)

	return out
}

// Add appends a new entry, allocating its staged LBAs immediately after
// the last currently-placed entry. On failure the array is left unchanged.
func (a *PartitionArray) Add(entry *PartitionEntry) error {
	if len(a.entries) >= geometry.ArrayEntryCount {
		return fmt.Errorf("%w: partition array already has %d entries", ErrOverflow, geometry.ArrayEntryCount)
	}

	if entry.Alignment == 0 {
		entry.Alignment = DefaultAlignment
	}

	a.entries = append(a.entries, entry)

	if err := a.allocate(); err != nil {
		a.entries = a.entries[:len(a.entries)-1]

		return err
	}

	return nil
}

// Remove deletes the entry matched by key (a name, matched case-
// sensitively, or a partition GUID, matched case-insensitively).
// Entries after the removed slot have their staged LBAs recomputed so
// that a subsequent commit compacts the payload left by the removal.
func (a *PartitionArray) Remove(key string) error {
	idx := a.findIndex(key)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	removed := a.entries[idx]
	a.entries = append(a.entries[:idx], a.entries[idx+1:]...)

	if err := a.allocate(); err != nil {
		// Re-insert on failure; this should not happen in practice since
		// removing an entry can only reduce total demand on the array.
		a.entries = append(a.entries[:idx], append([]*PartitionEntry{removed}, a.entries[idx:]...)...)
		_ = a.allocate()

		return err
	}

	return nil
}

// Resize sets the staged size of the entry matched by key and recomputes
// staged LBAs for it and every entry after it. On failure the array is
// left unchanged.
func (a *PartitionArray) Resize(key string, newSize uint64) error {
	idx := a.findIndex(key)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	entry := a.entries[idx]
	oldSize := entry.stagedSize
	entry.Resize(newSize)

	if err := a.allocate(); err != nil {
		entry.Resize(oldSize)
		_ = a.allocate()

		return err
	}

	return nil
}

// Find returns the entry matched by key, if any.
func (a *PartitionArray) Find(key string) (*PartitionEntry, bool) {
	idx := a.findIndex(key)
	if idx < 0 {
		return nil, false
	}

	return a.entries[idx], true
}

func (a *PartitionArray) findIndex(key string) int {
	for i, e := range a.entries {
		if e.Name == key {
			return i
		}

		if strings.EqualFold(e.PartitionGUID.String(), key) {
			return i
		}
	}

	return -1
}

// allocate recomputes the staged first/last LBA of every entry in array
// order, per the placement algorithm: each entry starts at the next
// alignment boundary strictly greater than the previous entry's last LBA
// (or LBA 33 for the first entry), and runs for ceil(size/sectorSize)
// sectors.
func (a *PartitionArray) allocate() error {
	sectorSize := uint64(a.geo.SectorSize())
	end := uint64(33)

	for _, e := range a.entries {
		if e.stagedSize < sectorSize {
			return fmt.Errorf("%w: partition %q size %d is below one sector (%d bytes)", ErrTooSmall, e.Name, e.stagedSize, sectorSize)
		}

		alignment := e.Alignment
		if alignment == 0 {
			alignment = DefaultAlignment
		}

		first := ((end / alignment) + 1) * alignment
		sectors := a.geo.SectorsForBytes(e.stagedSize)
		last := first + sectors - 1

		if last > a.geo.LastUsableLBA() {
			return fmt.Errorf("%w: partition %q needs LBA %d, last usable is %d", ErrOverflow, e.Name, last, a.geo.LastUsableLBA())
		}

		e.stagedFirstLBA = first
		e.stagedLastLBA = last
		end = last
	}

	return nil
}

// NeedsCommit reports whether any entry has a staged value differing from
// its committed value.
func (a *PartitionArray) NeedsCommit() bool {
	for _, e := range a.entries {
		if e.NeedsCommit() {
			return true
		}
	}

	return false
}

// PlanRelocations computes the payload moves required to bring every
// entry's on-disk data in line with its staged placement. Entries with no
// prior committed payload (newly added partitions) are omitted, since
// there is nothing to copy forward.
func (a *PartitionArray) PlanRelocations() []Relocation {
	var plan []Relocation

	for _, e := range a.entries {
		if !e.NeedsCommit() {
			continue
		}

		length := e.committedSize
		if e.stagedSize < length {
			length = e.stagedSize
		}

		if length == 0 {
			continue
		}

		plan = append(plan, Relocation{
			Entry:   e,
			SrcByte: a.geo.LBAToByte(e.committedFirstLBA),
			DstByte: a.geo.LBAToByte(e.stagedFirstLBA),
			Length:  int64(length),
		})
	}

	return plan
}

// Commit copies every entry's staged fields into its committed fields.
// Callers must have already performed any relocation described by
// PlanRelocations before calling Commit.
func (a *PartitionArray) Commit() {
	for _, e := range a.entries {
		e.commitStage()
	}
}

// Compact drops entries whose type GUID has gone nil, which can happen if
// a caller zeroes an entry in place rather than calling Remove.
func (a *PartitionArray) Compact() {
	a.entries = xslices.FilterInPlace(a.entries, func(e *PartitionEntry) bool {
		return !e.isEmpty()
	})
}

// Marshal packs the array into its fixed 16 KiB on-disk form: one 128-byte
// frame per entry in array order, zero-padded to geometry.ArrayEntryCount
// slots.
func (a *PartitionArray) Marshal() ([]byte, error) {
	buf := make([]byte, geometry.ArrayLength)

	for i, e := range a.entries {
		frame, err := e.marshal()
		if err != nil {
			return nil, err
		}

		copy(buf[i*geometry.ArrayEntryLength:], frame)
	}

	return buf, nil
}

// UnmarshalArray parses a 16 KiB partition array frame, skipping empty
// slots, and returns a populated PartitionArray. Every decoded entry has
// equal staged and committed fields (nothing pending).
func UnmarshalArray(geo geometry.Geometry, buf []byte) (*PartitionArray, error) {
	if len(buf) != geometry.ArrayLength {
		return nil, fmt.Errorf("%w: partition array frame is %d bytes, want %d", ErrInvalidFrameLength, len(buf), geometry.ArrayLength)
	}

	a := NewPartitionArray(geo)

	for i := 0; i < geometry.ArrayEntryCount; i++ {
		frame := buf[i*geometry.ArrayEntryLength : (i+1)*geometry.ArrayEntryLength]

		entry, ok, err := unmarshalEntry(frame, geo.SectorSize())
		if err != nil {
			return nil, fmt.Errorf("gpt: decoding partition entry %d: %w", i, err)
		}

		if !ok {
			continue
		}

		a.entries = append(a.entries, entry)
	}

	return a, nil
}
