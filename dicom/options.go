// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import "math"

// ReadOption configures the behavior of a PartReader.
type ReadOption func(*readOptions)

type readOptions struct {
	maxPartSize      uint32
	maxStringSize    uint32
	maxSequenceDepth int
}

func defaultReadOptions() readOptions {
	return readOptions{
		maxPartSize:      math.MaxUint32,
		maxStringSize:    math.MaxUint32,
		maxSequenceDepth: 10000,
	}
}

func applyReadOptions(opts []ReadOption) readOptions {
	o := defaultReadOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxStringSize < o.maxPartSize {
		o.maxStringSize = o.maxPartSize
	}
	return o
}

// WithMaxPartSize caps the number of value bytes carried by a single
// DataElementValueBytesPart. The size is rounded up to a multiple of 8 so
// chunk boundaries never split a byte-swap group.
func WithMaxPartSize(size uint32) ReadOption {
	return func(o *readOptions) {
		if size == 0 {
			return
		}
		if size > math.MaxUint32-7 {
			o.maxPartSize = math.MaxUint32
			return
		}
		o.maxPartSize = (size + 7) &^ 7
	}
}

// WithMaxStringSize caps the size of value fields that must be fully
// materialized before they can be emitted (strings routed through the
// character set decoder and clarifying data elements). It is never allowed
// to be smaller than the max part size.
func WithMaxStringSize(size uint32) ReadOption {
	return func(o *readOptions) {
		if size == 0 {
			return
		}
		o.maxStringSize = size
	}
}

// WithMaxSequenceDepth caps how deeply sequences and items may nest.
func WithMaxSequenceDepth(depth int) ReadOption {
	return func(o *readOptions) {
		if depth > 0 {
			o.maxSequenceDepth = depth
		}
	}
}

// WriteOption configures the behavior of a PartWriter.
type WriteOption func(*writeOptions)

type writeOptions struct {
	compressionLevel int
}

func defaultWriteOptions() writeOptions {
	return writeOptions{compressionLevel: 6}
}

func applyWriteOptions(opts []WriteOption) writeOptions {
	o := defaultWriteOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCompressionLevel sets the DEFLATE compression level (0-9) used for
// deflated transfer syntaxes.
func WithCompressionLevel(level int) WriteOption {
	return func(o *writeOptions) {
		if level >= 0 && level <= 9 {
			o.compressionLevel = level
		}
	}
}
