// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "github.com/google/uuid"

// guidToDisk converts a uuid.UUID (big-endian byte order per RFC 4122) into
// the mixed-endian byte layout GPT structures store on disk: the first
// three fields (time-low, time-mid, time-high-and-version) are little-
// endian, the remaining eight bytes (clock sequence and node) are left
// as-is.
func guidToDisk(u uuid.UUID) [16]byte {
	var out [16]byte

	out[0], out[1], out[2], out[3] = u[3], u[2], u[1], u[0]
	out[4], out[5] = u[5], u[4]
	out[6], out[7] = u[7], u[6]
	copy(out[8:], u[8:])

	return out
}

// guidFromDisk is the inverse of guidToDisk.
func guidFromDisk(b [16]byte) uuid.UUID {
	var u uuid.UUID

	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])

	return u
}
