// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swysocki/gpt-image/gpt"
)

func TestAttributeFlagsSetClearList(t *testing.T) {
	var a gpt.AttributeFlags

	a = a.Set(gpt.AttributeReadOnly)
	a = a.Set(gpt.AttributeHidden)

	assert.Equal(t, []int{62, 60}, a.List())

	a = a.Clear()
	assert.Empty(t, a.List())

	a = a.Set(0)
	assert.Empty(t, a.List())
}

func TestNewPartitionEntryDefaults(t *testing.T) {
	e := gpt.NewPartitionEntry("root", gpt.TypeLinuxFilesystem, 2048)

	assert.Equal(t, "root", e.Name)
	assert.Equal(t, gpt.TypeLinuxFilesystem, e.TypeGUID)
	assert.NotEqual(t, uuid.Nil, e.PartitionGUID)
	assert.EqualValues(t, gpt.DefaultAlignment, e.Alignment)
	assert.EqualValues(t, 2048, e.StagedSize())
	assert.True(t, e.NeedsCommit())
	assert.Zero(t, e.StagedFirstLBA())
}
