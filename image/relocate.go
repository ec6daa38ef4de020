// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package image

import (
	"io"
	"os"
)

// relocateCopyChunk bounds how much of a partition's payload is held in
// memory at once while shuffling it between the old image and the scratch
// file.
const relocateCopyChunk = 4 * 1024 * 1024

// relocate moves every partition's payload bytes to its staged location in
// a fresh scratch file, then atomically replaces the backing file with the
// scratch file. Every non-empty entry is copied, not only the ones whose
// LBA actually moved: the scratch file starts zeroed, so an entry that
// kept its LBA still needs its bytes carried forward or a whole-file
// replace would silently erase it. This generalises the relocation
// algorithm's per-entry copy to a no-op (src == dst) for unmoved entries
// rather than skipping them.
func (img *Image) relocate() error {
	if !img.table.Array.NeedsCommit() {
		return nil
	}

	fi, err := img.file.Stat()
	if err != nil {
		return err
	}

	scratchPath := img.path + ".gpt-scratch"

	scratch, err := os.OpenFile(scratchPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	defer os.Remove(scratchPath)
	defer scratch.Close()

	if err := allocate(scratch, fi.Size()); err != nil {
		return err
	}

	for _, e := range img.table.Array.Entries() {
		committedSize := e.Size()
		stagedSize := e.StagedSize()

		length := committedSize
		if stagedSize < length {
			length = stagedSize
		}

		if length == 0 {
			continue
		}

		srcByte := img.geo.LBAToByte(e.FirstLBA())
		dstByte := img.geo.LBAToByte(e.StagedFirstLBA())

		if err := copyRange(img.file, scratch, srcByte, dstByte, int64(length)); err != nil {
			return err
		}
	}

	if err := scratch.Sync(); err != nil {
		return err
	}

	if err := img.file.Close(); err != nil {
		return err
	}

	if err := os.Rename(scratchPath, img.path); err != nil {
		return err
	}

	f, err := os.OpenFile(img.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}

	img.file = f

	return nil
}

// copyRange copies length bytes from src at srcOffset to dst at dstOffset,
// in fixed-size chunks so a single huge partition does not require
// buffering the whole payload in memory.
func copyRange(src, dst *os.File, srcOffset, dstOffset, length int64) error {
	buf := make([]byte, relocateCopyChunk)

	for length > 0 {
		n := int64(len(buf))
		if length < n {
			n = length
		}

		if _, err := src.ReadAt(buf[:n], srcOffset); err != nil && err != io.EOF {
			return err
		}

		if _, err := dst.WriteAt(buf[:n], dstOffset); err != nil {
			return err
		}

		srcOffset += n
		dstOffset += n
		length -= n
	}

	return nil
}
