// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "errors"

// Error values returned by this package. Callers should compare with
// errors.Is, since most are wrapped with additional context.
var (
	ErrNotFound            = errors.New("gpt: not found")
	ErrExists              = errors.New("gpt: already exists")
	ErrBadSignature        = errors.New("gpt: bad header signature")
	ErrBadRevision         = errors.New("gpt: bad header revision")
	ErrBadHeaderSize       = errors.New("gpt: bad header size")
	ErrTableMismatch       = errors.New("gpt: primary and backup partition arrays differ")
	ErrOverflow            = errors.New("gpt: partition does not fit in remaining disk space")
	ErrTooSmall            = errors.New("gpt: size is smaller than one sector")
	ErrOutOfBounds         = errors.New("gpt: access is out of bounds for the partition")
	ErrInvalidFrameLength  = errors.New("gpt: invalid on-disk frame length")
	ErrHeaderChecksum      = errors.New("gpt: header checksum mismatch")
	ErrPartitionArrayCRC   = errors.New("gpt: partition array checksum mismatch")
)
