// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package image

import "os"

// allocate reserves size bytes of zeroed storage for f. Outside Linux
// there is no portable fallocate equivalent in the standard library, so
// this relies on Truncate producing a sparse file that reads back as
// zeros; it doesn't guarantee the backing blocks are reserved up front.
func allocate(f *os.File, size int64) error {
	return f.Truncate(size)
}
