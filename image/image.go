// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package image binds a gpt.Table to a backing file, giving callers
// Create/Open/Commit/WriteData/ReadData workflows on top of the pure
// gpt and geometry packages.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swysocki/gpt-image/geometry"
	"github.com/swysocki/gpt-image/gpt"
)

// Image is a GPT disk image bound to a regular file. It is not safe for
// concurrent use from multiple goroutines.
type Image struct {
	path string
	file *os.File

	geo   geometry.Geometry
	table *gpt.Table

	state  state
	logger *zap.Logger
}

// Create allocates a new zero-filled file of exactly size bytes at path,
// builds an empty Table for it, and commits the initial (empty) GPT
// layout. It fails with gpt.ErrExists if path already exists.
func Create(path string, size uint64, opts ...Option) (*Image, error) {
	o := newOptions(opts)

	geo, err := geometry.New(size, o.SectorSize)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", gpt.ErrExists, path)
		}

		return nil, err
	}

	if err := allocate(f, int64(size)); err != nil {
		f.Close()
		os.Remove(path)

		return nil, fmt.Errorf("image: allocating %d bytes for %s: %w", size, path, err)
	}

	img := &Image{
		path:   path,
		file:   f,
		geo:    geo,
		table:  gpt.New(geo),
		state:  stateOpened,
		logger: o.Logger,
	}

	img.logger.Info("created image",
		zap.String("path", path),
		zap.Uint64("size", size),
		zap.String("disk_guid", img.table.DiskGUID.String()),
	)

	if err := img.Commit(); err != nil {
		img.file.Close()

		return nil, err
	}

	return img, nil
}

// Open binds to an existing image file, deriving Geometry from the file's
// size and the sector size given by WithSectorSize (or 512 by default).
//
// Open does not inspect the on-disk header to discover the sector size it
// was authored with; a 4Kn image opened with the wrong sector size will
// misparse rather than fail loudly. This is a known, documented
// limitation, not an oversight.
func Open(path string, opts ...Option) (*Image, error) {
	o := newOptions(opts)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", gpt.ErrNotFound, path)
		}

		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, err
	}

	geo, err := geometry.New(uint64(fi.Size()), o.SectorSize)
	if err != nil {
		f.Close()

		return nil, err
	}

	tbl, err := readTable(f, geo)
	if err != nil {
		f.Close()

		return nil, err
	}

	img := &Image{
		path:   path,
		file:   f,
		geo:    geo,
		table:  tbl,
		state:  stateOpened,
		logger: o.Logger,
	}

	img.logger.Info("opened image",
		zap.String("path", path),
		zap.String("disk_guid", img.table.DiskGUID.String()),
		zap.Int("partitions", len(tbl.Array.Entries())),
	)

	return img, nil
}

// Close releases the backing file handle without writing anything.
func (img *Image) Close() error {
	return img.file.Close()
}

// Table returns the Image's underlying gpt.Table, giving callers access to
// PartitionArray mutation (Add/Remove/Resize). Any mutation through the
// returned Table marks the Image dirty; call Commit afterward.
func (img *Image) Table() *gpt.Table {
	img.state = stateDirty

	return img.table
}

// AddPartition is a convenience wrapper over Table().Array.Add via
// gpt.Table.AddPartition that also marks the image dirty.
func (img *Image) AddPartition(name string, typeGUID uuid.UUID, size uint64, opts ...gpt.PartitionOption) (*gpt.PartitionEntry, error) {
	entry, err := img.table.AddPartition(name, typeGUID, size, opts...)
	if err != nil {
		return nil, err
	}

	img.state = stateDirty

	img.logger.Debug("staged partition",
		zap.String("name", name),
		zap.Uint64("size", size),
	)

	return entry, nil
}

func readTable(f *os.File, geo geometry.Geometry) (*gpt.Table, error) {
	mbrBytes := make([]byte, 512)
	if _, err := f.ReadAt(mbrBytes, 0); err != nil {
		return nil, fmt.Errorf("image: reading protective mbr: %w", err)
	}

	primaryHeaderBytes := make([]byte, geometry.HeaderLength)
	if _, err := f.ReadAt(primaryHeaderBytes, geo.PrimaryHeaderByte()); err != nil {
		return nil, fmt.Errorf("image: reading primary header: %w", err)
	}

	backupHeaderBytes := make([]byte, geometry.HeaderLength)
	if _, err := f.ReadAt(backupHeaderBytes, geo.BackupHeaderByte()); err != nil {
		return nil, fmt.Errorf("image: reading backup header: %w", err)
	}

	primaryArrayBytes := make([]byte, geometry.ArrayLength)
	if _, err := f.ReadAt(primaryArrayBytes, geo.PrimaryArrayByte()); err != nil {
		return nil, fmt.Errorf("image: reading primary partition array: %w", err)
	}

	backupArrayBytes := make([]byte, geometry.ArrayLength)
	if _, err := f.ReadAt(backupArrayBytes, geo.BackupArrayByte()); err != nil {
		return nil, fmt.Errorf("image: reading backup partition array: %w", err)
	}

	return gpt.Decode(geo, mbrBytes, primaryHeaderBytes, backupHeaderBytes, primaryArrayBytes, backupArrayBytes)
}
