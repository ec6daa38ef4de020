// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package image

import (
	"fmt"

	"go.uber.org/zap"
)

// Commit performs payload relocation for any staged partition moves, then
// recomputes checksums, then writes the protective MBR, both headers, and
// both partition arrays to the backing file in that fixed order: MBR,
// primary header, primary array, backup header, backup array. A crash
// mid-commit leaves the earlier writes intact and the backup array
// holding the previous layout until the final write lands. When payload
// relocation ran, the backing file has already been replaced by the
// scratch file, which holds no table until these writes complete.
func (img *Image) Commit() error {
	if err := img.relocate(); err != nil {
		return fmt.Errorf("image: relocating partition payloads: %w", err)
	}

	img.table.Array.Commit()

	if err := img.table.Update(); err != nil {
		return fmt.Errorf("image: updating checksums: %w", err)
	}

	if err := img.writeTable(); err != nil {
		return fmt.Errorf("image: writing table: %w", err)
	}

	img.state = stateCommitted

	img.logger.Info("committed image",
		zap.String("path", img.path),
		zap.Int("partitions", len(img.table.Array.Entries())),
	)

	return nil
}

func (img *Image) writeTable() error {
	mbrBytes := img.table.MBR.Marshal()
	if _, err := img.file.WriteAt(mbrBytes, 0); err != nil {
		return fmt.Errorf("writing protective mbr: %w", err)
	}

	if err := img.writeHeaderSector(img.table.Primary.Marshal(), img.geo.PrimaryHeaderByte()); err != nil {
		return fmt.Errorf("writing primary header: %w", err)
	}

	arrayBytes, err := img.table.ArrayBytes()
	if err != nil {
		return fmt.Errorf("marshalling partition array: %w", err)
	}

	if _, err := img.file.WriteAt(arrayBytes, img.geo.PrimaryArrayByte()); err != nil {
		return fmt.Errorf("writing primary partition array: %w", err)
	}

	if err := img.writeHeaderSector(img.table.Backup.Marshal(), img.geo.BackupHeaderByte()); err != nil {
		return fmt.Errorf("writing backup header: %w", err)
	}

	if _, err := img.file.WriteAt(arrayBytes, img.geo.BackupArrayByte()); err != nil {
		return fmt.Errorf("writing backup partition array: %w", err)
	}

	return img.file.Sync()
}

// writeHeaderSector writes a 92-byte header frame zero-padded to fill one
// full sector, per the codec's on-disk layout.
func (img *Image) writeHeaderSector(headerBytes []byte, byteOffset int64) error {
	sector := make([]byte, img.geo.SectorSize())
	copy(sector, headerBytes)

	_, err := img.file.WriteAt(sector, byteOffset)

	return err
}
