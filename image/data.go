// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package image

import (
	"fmt"

	"github.com/swysocki/gpt-image/gpt"
)

// WriteData writes data at offset bytes into the partition matched by key
// (a name or partition GUID), bounds-checked against the partition's
// committed size. It fails with gpt.ErrNotFound if no partition matches,
// or gpt.ErrOutOfBounds if offset+len(data) exceeds the partition's size.
func (img *Image) WriteData(key string, data []byte, offset uint64) (int, error) {
	entry, ok := img.table.Array.Find(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", gpt.ErrNotFound, key)
	}

	if offset+uint64(len(data)) > entry.Size() {
		return 0, fmt.Errorf("%w: write of %d bytes at offset %d exceeds partition %q size %d", gpt.ErrOutOfBounds, len(data), offset, key, entry.Size())
	}

	byteOffset := img.geo.LBAToByte(entry.FirstLBA()) + int64(offset)

	n, err := img.file.WriteAt(data, byteOffset)
	if err != nil {
		return n, fmt.Errorf("image: writing partition %q data: %w", key, err)
	}

	return n, nil
}

// ReadData reads up to min(partition.size, maxSize) bytes from the start
// of the partition matched by key.
func (img *Image) ReadData(key string, maxSize uint64) ([]byte, error) {
	entry, ok := img.table.Array.Find(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", gpt.ErrNotFound, key)
	}

	size := entry.Size()
	if maxSize < size {
		size = maxSize
	}

	buf := make([]byte, size)

	byteOffset := img.geo.LBAToByte(entry.FirstLBA())

	if _, err := img.file.ReadAt(buf, byteOffset); err != nil {
		return nil, fmt.Errorf("image: reading partition %q data: %w", key, err)
	}

	return buf, nil
}
