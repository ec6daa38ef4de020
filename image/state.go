// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package image

// state tracks an Image's position in its lifecycle: Unbound -> Opened
// (via Create or Open) -> Dirty (after any array mutation) -> Committed
// (after Commit). ReadData/WriteData are permitted in Opened or Committed.
type state int

const (
	stateUnbound state = iota
	stateOpened
	stateDirty
	stateCommitted
)

func (s state) String() string {
	switch s {
	case stateUnbound:
		return "unbound"
	case stateOpened:
		return "opened"
	case stateDirty:
		return "dirty"
	case stateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}
