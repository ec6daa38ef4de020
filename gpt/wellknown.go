// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "github.com/google/uuid"

// Well-known partition type GUIDs. This is a fixed, non-extensible set of
// constants for caller convenience, not a maintained catalogue.
var (
	TypeEFISystem        = uuid.MustParse("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")
	TypeLinuxFilesystem  = uuid.MustParse("0FC63DAF-8483-4772-8E79-3D69D8477DE4")
)
