// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "github.com/google/uuid"

// PartitionOptions configures a partition created via AddPartition.
type PartitionOptions struct {
	PartitionGUID uuid.UUID
	Alignment     uint64
	Attributes    AttributeFlags
}

// PartitionOption mutates PartitionOptions.
type PartitionOption func(*PartitionOptions)

// WithPartitionGUID sets a caller-supplied partition GUID instead of
// generating a random one.
func WithPartitionGUID(id uuid.UUID) PartitionOption {
	return func(o *PartitionOptions) { o.PartitionGUID = id }
}

// WithAlignment overrides the default placement alignment, in sectors.
func WithAlignment(sectors uint64) PartitionOption {
	return func(o *PartitionOptions) { o.Alignment = sectors }
}

// WithAttribute ORs a recognised attribute bit into the partition's
// attribute flags.
func WithAttribute(bit AttributeFlags) PartitionOption {
	return func(o *PartitionOptions) { o.Attributes = o.Attributes.Set(bit) }
}

// AddPartition builds a PartitionEntry from name, typeGUID, and size, then
// adds it to the array via Add. It is a convenience wrapper; PartitionArray
// itself remains free of any disk-image lifecycle state.
func (t *Table) AddPartition(name string, typeGUID uuid.UUID, size uint64, opts ...PartitionOption) (*PartitionEntry, error) {
	var o PartitionOptions

	for _, opt := range opts {
		opt(&o)
	}

	entry := NewPartitionEntry(name, typeGUID, size)

	if o.PartitionGUID != uuid.Nil {
		entry.PartitionGUID = o.PartitionGUID
	}

	if o.Alignment != 0 {
		entry.Alignment = o.Alignment
	}

	entry.Attributes = o.Attributes

	if err := t.Array.Add(entry); err != nil {
		return nil, err
	}

	return entry, nil
}
