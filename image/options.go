// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package image

import "go.uber.org/zap"

// defaultSectorSize is used by Open when the caller does not specify one.
const defaultSectorSize = 512

// Options configures Create and Open.
type Options struct {
	SectorSize uint32
	Logger     *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithLogger injects a logger for lifecycle events. The default is a no-op
// logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithSectorSize overrides the sector size used to derive Geometry. Create
// always uses this value (defaulting to 512); Open uses it because the
// on-disk header does not carry its own sector size (see the doc comment
// on Open).
func WithSectorSize(size uint32) Option {
	return func(o *Options) { o.SectorSize = size }
}

func newOptions(opts []Option) Options {
	o := Options{
		SectorSize: defaultSectorSize,
		Logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
