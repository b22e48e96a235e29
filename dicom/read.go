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

import (
	"encoding/binary"
	"io"
)

// magicWord is the DICOM prefix that follows the 128-byte preamble.
const magicWord = "DICM"

type readState int

const (
	statePreamble readState = iota
	stateFileMeta
	stateHeader
	stateValueBytes
	stateDone
)

// PartReader converts a DICOM Part 10 byte stream into a stream of Parts. It
// is push based: callers alternate between Write, which supplies raw bytes,
// and ReadParts, which drains the Parts those bytes complete.
//
// The reader is resumable. When ReadParts returns ErrDataRequired the byte
// stream holds no complete next step; writing more bytes and calling
// ReadParts again continues exactly where reading stopped. The emitted Parts
// are identical regardless of how the input is chunked.
//
// All string values are converted to UTF-8 and big endian values to little
// endian, so Parts have a single canonical form on every transfer syntax.
type PartReader struct {
	stream *byteStream
	loc    *location
	opts   readOptions

	state  readState
	syntax *transferSyntax

	valueVR        *VR
	valueRemaining uint32
	valueSwapSize  int
	valueSkip      bool

	failure error
}

// NewPartReader returns a PartReader ready to accept the start of a DICOM
// Part 10 stream.
func NewPartReader(opts ...ReadOption) *PartReader {
	options := applyReadOptions(opts)
	return &PartReader{
		stream: newByteStream(),
		loc:    newLocation(options.maxSequenceDepth),
		opts:   options,
	}
}

// Write supplies the next chunk of raw bytes. The reader takes ownership of
// the slice. final indicates that no further bytes follow; a final Write may
// carry an empty chunk.
func (r *PartReader) Write(chunk []byte, final bool) error {
	if r.failure != nil {
		return r.failure
	}
	return r.stream.write(chunk, final)
}

// ReadParts returns the Parts that the bytes written so far complete. It
// returns ErrDataRequired when no complete Part is available and the stream
// is not final, and io.EOF once the End Part has been returned.
func (r *PartReader) ReadParts() ([]Part, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	if r.state == stateDone {
		return nil, io.EOF
	}

	var parts []Part
	for {
		step, err := r.readStep()
		if err == ErrDataRequired {
			if len(parts) > 0 {
				return parts, nil
			}
			return nil, ErrDataRequired
		}
		if err != nil {
			r.failure = err
			return parts, err
		}
		parts = append(parts, step...)
		if r.state == stateDone {
			return parts, nil
		}
	}
}

func (r *PartReader) readStep() ([]Part, error) {
	switch r.state {
	case statePreamble:
		return r.readPreamble()
	case stateFileMeta:
		return r.readFileMeta()
	case stateHeader:
		return r.readHeader()
	case stateValueBytes:
		return r.readValueBytes()
	}
	return nil, io.EOF
}

// readPreamble emits the 128-byte preamble when the stream opens with one. A
// stream that does not lead with a preamble and "DICM" prefix is read as a
// bare data set: a zero preamble is emitted and no bytes are consumed.
func (r *PartReader) readPreamble() ([]Part, error) {
	part := &FilePreambleAndPrefixPart{}

	b, err := r.stream.peek(132)
	switch err {
	case nil:
		if string(b[128:132]) == magicWord {
			if _, err := r.stream.read(132); err != nil {
				return nil, err
			}
			copy(part.Preamble[:], b[:128])
		}
	case errDataEnd:
		// too short to hold a preamble
	default:
		return nil, err
	}

	r.state = stateFileMeta
	return []Part{part}, nil
}

// readFileMeta reads the File Meta Information group in one atomic step and
// emits it as a single Part. The group is always serialized in explicit VR
// little endian. Its extent comes from the group length element when present,
// otherwise elements are read while they belong to group 0002. The group is
// materialized whole, so its total size is bounded by the max string size.
func (r *PartReader) readFileMeta() ([]Part, error) {
	fmi := NewDataSet()
	off := 0
	endsAt := -1

	for endsAt < 0 || off < endsAt {
		b, err := r.stream.peek(off + 8)
		if err == errDataEnd {
			if endsAt >= 0 {
				return nil, newError(ErrorDataEndedUnexpectedly, r.stream.bytesRead+uint64(off), "file meta information ended prematurely")
			}
			break
		}
		if err != nil {
			return nil, err
		}
		b = b[off:]
		offset := r.stream.bytesRead + uint64(off)

		tag := tagFromGroupElement(binary.LittleEndian.Uint16(b[0:2]), binary.LittleEndian.Uint16(b[2:4]))
		if tag.GroupNumber() != 0x0002 {
			if endsAt >= 0 {
				return nil, newTagError(ErrorDataInvalid, offset, tag, "file meta information contains an element outside group 0002")
			}
			break
		}

		vr, err := lookupVRByName(string(b[4:6]))
		if err != nil {
			return nil, newTagError(ErrorDataInvalid, offset, tag, "file meta information has an invalid VR %q", string(b[4:6]))
		}
		if vr == SQVR {
			return nil, newTagError(ErrorDataInvalid, offset, tag, "file meta information must not contain sequences")
		}

		var length uint32
		headerLen := 8
		if vr.longLength {
			long, err := r.stream.peek(off + 12)
			if err == errDataEnd {
				return nil, newError(ErrorDataEndedUnexpectedly, offset, "file meta information ended prematurely")
			}
			if err != nil {
				return nil, err
			}
			length = binary.LittleEndian.Uint32(long[off+8 : off+12])
			headerLen = 12
		} else {
			length = uint32(binary.LittleEndian.Uint16(b[6:8]))
		}
		if length == UndefinedLength {
			return nil, newTagError(ErrorDataInvalid, offset, tag, "file meta information element has undefined length")
		}
		if length > r.opts.maxStringSize {
			return nil, newTagError(ErrorMaximumExceeded, offset, tag, "file meta information element length %d exceeds the maximum of %d", length, r.opts.maxStringSize)
		}

		full, err := r.stream.peek(off + headerLen + int(length))
		if err == errDataEnd {
			return nil, newError(ErrorDataEndedUnexpectedly, offset, "file meta information ended prematurely")
		}
		if err != nil {
			return nil, err
		}
		value := append([]byte(nil), full[off+headerLen:]...)
		off += headerLen + int(length)
		if uint64(off) > uint64(r.opts.maxStringSize) {
			return nil, newError(ErrorMaximumExceeded, r.stream.bytesRead+uint64(off), "file meta information exceeds the maximum of %d bytes", r.opts.maxStringSize)
		}

		if tag == FileMetaInformationGroupLengthTag {
			// recomputed on write, so not retained in the data set
			if endsAt < 0 && len(value) == 4 {
				endsAt = off + int(binary.LittleEndian.Uint32(value))
			}
			continue
		}
		fmi.Add(&DataElement{Tag: tag, VR: vr, ValueField: value, ValueLength: length})
	}

	if off > 0 {
		if _, err := r.stream.read(off); err != nil {
			return nil, err
		}
	}

	if uid, ok := fmi.transferSyntaxUID(); ok && uid != "" {
		syntax, known := lookupTransferSyntax(uid)
		if !known {
			return nil, newError(ErrorTransferSyntaxNotSupported, r.stream.bytesRead, "transfer syntax %q is not supported", uid)
		}
		r.syntax = syntax
	} else {
		r.syntax = implicitVRLittleEndian
	}
	if r.syntax.Deflated {
		r.stream.startInflate()
	}

	r.state = stateHeader
	return []Part{&FileMetaInformationPart{DataSet: fmi}}, nil
}

// byteOrder is the byte order for the current position. Inside a sequence
// read under CP-246 the contents are implicit VR little endian regardless of
// the transfer syntax.
func (r *PartReader) byteOrder() binary.ByteOrder {
	if r.loc.forcedImplicit() {
		return binary.LittleEndian
	}
	return r.syntax.ByteOrder
}

func (r *PartReader) implicitVR() bool {
	return r.syntax.Implicit || r.loc.forcedImplicit()
}

// readHeader performs one header-position step: synthesizing the delimiter
// of a defined-length container that has ended, reading an encapsulated
// pixel data item header, or reading a data element header.
func (r *PartReader) readHeader() ([]Part, error) {
	if part, ok := r.loc.nextDelimiterPart(r.stream.bytesRead); ok {
		return []Part{part}, nil
	}

	if pixelVR, ok := r.loc.inPixelDataSequence(); ok {
		return r.readPixelDataItem(pixelVR)
	}

	order := r.byteOrder()
	b, err := r.stream.peek(8)
	if err == errDataEnd {
		return r.endOfStream()
	}
	if err != nil {
		return nil, err
	}

	offset := r.stream.bytesRead
	tag := tagFromGroupElement(order.Uint16(b[0:2]), order.Uint16(b[2:4]))
	if tag.GroupNumber() == 0xFFFE {
		return r.readDelimiter(tag, order.Uint32(b[4:8]), offset)
	}

	var vr *VR
	var length uint32
	headerLen := 8
	switch {
	case r.implicitVR():
		vr = r.loc.inferVRForTag(tag)
		length = order.Uint32(b[4:8])
	case string(b[4:6]) == "  ":
		// some implementations write VR-less elements into explicit VR
		// streams; infer the VR and read the short length form
		vr = r.loc.inferVRForTag(tag)
		length = uint32(order.Uint16(b[6:8]))
	default:
		vr, err = lookupVRByName(string(b[4:6]))
		if err != nil {
			return nil, newTagError(ErrorDataInvalid, offset, tag, "invalid VR %q", string(b[4:6]))
		}
		if vr.longLength {
			long, err := r.stream.peek(12)
			if err == errDataEnd {
				return nil, newError(ErrorDataEndedUnexpectedly, offset, "data ended in the middle of a data element header")
			}
			if err != nil {
				return nil, err
			}
			length = order.Uint32(long[8:12])
			headerLen = 12
		} else {
			length = uint32(order.Uint16(b[6:8]))
		}
	}

	undefined := length == UndefinedLength

	// Sequences. An explicit VR of UN with undefined length is a sequence
	// whose contents were serialized without VRs (CP-246).
	if vr == SQVR || (vr == UNVR && undefined) {
		if _, err := r.stream.read(headerLen); err != nil {
			return nil, err
		}
		var endsAt uint64
		hasEnd := !undefined
		if hasEnd {
			endsAt = r.stream.bytesRead + uint64(length)
		}
		if err := r.loc.startSequence(tag, vr == UNVR, endsAt, hasEnd, offset); err != nil {
			return nil, err
		}
		return []Part{&SequenceStartPart{Tag: tag, VR: SQVR}}, nil
	}

	if undefined {
		if tag == PixelDataTag && (vr == OBVR || vr == OWVR) {
			if _, err := r.stream.read(headerLen); err != nil {
				return nil, err
			}
			if err := r.loc.startPixelDataSequence(tag, vr, offset); err != nil {
				return nil, err
			}
			return []Part{&SequenceStartPart{Tag: tag, VR: vr}}, nil
		}
		return nil, newTagError(ErrorDataInvalid, offset, tag, "invalid undefined length")
	}

	// group length elements and trailing padding are consumed without
	// emitting Parts
	skip := tag.IsGroupLength() || tag == DataSetTrailingPaddingTag

	if !skip && (r.loc.isClarifyingTag(tag) || vr.needsCharacterSetDecoding()) {
		return r.readWholeValue(tag, vr, headerLen, length, offset)
	}

	if _, err := r.stream.read(headerLen); err != nil {
		return nil, err
	}

	if length == 0 {
		if skip {
			return nil, nil
		}
		return []Part{
			&DataElementHeaderPart{Tag: tag, VR: vr, Length: 0},
			&DataElementValueBytesPart{VR: vr, Data: []byte{}, BytesRemaining: 0},
		}, nil
	}

	r.state = stateValueBytes
	r.valueVR = vr
	r.valueRemaining = length
	r.valueSwapSize = 1
	if order == binary.BigEndian {
		r.valueSwapSize = vr.swapSize
	}
	r.valueSkip = skip
	if skip {
		return nil, nil
	}
	return []Part{&DataElementHeaderPart{Tag: tag, VR: vr, Length: length}}, nil
}

// readDelimiter handles the item and delimiter pseudo-elements of group
// FFFE. A sequence delimiter with no open sequence occurs in real-world data
// and is skipped; an item delimiter with no open item is an error.
func (r *PartReader) readDelimiter(tag DataElementTag, length uint32, offset uint64) ([]Part, error) {
	switch tag {
	case ItemTag:
		if _, err := r.stream.read(8); err != nil {
			return nil, err
		}
		var endsAt uint64
		hasEnd := length != UndefinedLength
		if hasEnd {
			endsAt = r.stream.bytesRead + uint64(length)
		}
		if err := r.loc.startItem(endsAt, hasEnd, offset); err != nil {
			return nil, err
		}
		return []Part{&SequenceItemStartPart{}}, nil

	case ItemDelimitationItemTag:
		if _, err := r.stream.read(8); err != nil {
			return nil, err
		}
		if err := r.loc.endItem(offset); err != nil {
			return nil, err
		}
		return []Part{&SequenceItemDelimiterPart{}}, nil

	case SequenceDelimitationItemTag:
		if _, err := r.stream.read(8); err != nil {
			return nil, err
		}
		seqTag, ok := r.loc.endSequence()
		if !ok {
			return nil, nil
		}
		return []Part{&SequenceDelimiterPart{Tag: seqTag}}, nil
	}

	return nil, newTagError(ErrorDataInvalid, offset, tag, "unrecognized group FFFE element")
}

// readWholeValue reads a header and its complete value in one atomic step.
// This path serves data elements whose value must be seen whole: clarifying
// elements, and strings that need character set decoding.
func (r *PartReader) readWholeValue(tag DataElementTag, vr *VR, headerLen int, length uint32, offset uint64) ([]Part, error) {
	if length > r.opts.maxStringSize {
		return nil, newTagError(ErrorMaximumExceeded, offset, tag, "length %d exceeds the maximum of %d for a materialized value", length, r.opts.maxStringSize)
	}

	full, err := r.stream.peek(headerLen + int(length))
	if err == errDataEnd {
		return nil, newError(ErrorDataEndedUnexpectedly, offset, "data ended in the middle of a data element value")
	}
	if err != nil {
		return nil, err
	}
	value := append([]byte(nil), full[headerLen:]...)
	if _, err := r.stream.read(headerLen + int(length)); err != nil {
		return nil, err
	}

	if r.byteOrder() == binary.BigEndian {
		swapBytes(value, vr.swapSize)
	}
	if vr.needsCharacterSetDecoding() {
		decoded, err := decodeStringValue(value, r.loc.activeEncoding(), vr.stringKind)
		if err != nil {
			return nil, newTagError(ErrorDataInvalid, offset, tag, "string value could not be decoded: %v", err)
		}
		value = decoded
	}
	if r.loc.isClarifyingTag(tag) {
		value, err = r.loc.updateClarifying(tag, value, offset)
		if err != nil {
			return nil, err
		}
	}
	if len(value)%2 == 1 {
		pad := byte(' ')
		if !vr.isString() {
			pad = 0
		}
		value = append(value, pad)
	}

	return []Part{
		&DataElementHeaderPart{Tag: tag, VR: vr, Length: uint32(len(value))},
		&DataElementValueBytesPart{VR: vr, Data: value, BytesRemaining: 0},
	}, nil
}

// readValueBytes emits the next chunk of a streaming value. Chunk sizes are a
// function of the value length and the max part size alone, never of how the
// input bytes arrived, so the emitted Parts are identical for any input
// chunking.
func (r *PartReader) readValueBytes() ([]Part, error) {
	max := r.valueRemaining
	if max > r.opts.maxPartSize {
		max = r.opts.maxPartSize
	}
	want := int(max)
	if uint64(max) > 1<<30 {
		want = 1 << 30
	}

	data, err := r.stream.read(want)
	if err == errDataEnd {
		return nil, newError(ErrorDataEndedUnexpectedly, r.stream.bytesRead, "data ended in the middle of a data element value")
	}
	if err != nil {
		return nil, err
	}

	r.valueRemaining -= uint32(len(data))
	if r.valueRemaining == 0 {
		r.state = stateHeader
	}
	if r.valueSkip {
		return nil, nil
	}
	if r.valueSwapSize > 1 {
		swapBytes(data, r.valueSwapSize)
	}
	return []Part{&DataElementValueBytesPart{VR: r.valueVR, Data: data, BytesRemaining: r.valueRemaining}}, nil
}

// readPixelDataItem reads the next fragment header or the closing delimiter
// of an encapsulated pixel data sequence.
func (r *PartReader) readPixelDataItem(pixelVR *VR) ([]Part, error) {
	b, err := r.stream.peek(8)
	if err == errDataEnd {
		return r.endOfStream()
	}
	if err != nil {
		return nil, err
	}

	order := r.syntax.ByteOrder
	offset := r.stream.bytesRead
	tag := tagFromGroupElement(order.Uint16(b[0:2]), order.Uint16(b[2:4]))
	length := order.Uint32(b[4:8])

	switch tag {
	case ItemTag:
		if length == UndefinedLength {
			return nil, newTagError(ErrorDataInvalid, offset, tag, "encapsulated pixel data item has undefined length")
		}
		if _, err := r.stream.read(8); err != nil {
			return nil, err
		}
		item := &PixelDataItemPart{Index: r.loc.nextPixelDataItemIndex(), Length: length}
		if length == 0 {
			return []Part{item, &DataElementValueBytesPart{VR: pixelVR, Data: []byte{}, BytesRemaining: 0}}, nil
		}
		r.state = stateValueBytes
		r.valueVR = pixelVR
		r.valueRemaining = length
		r.valueSwapSize = 1
		r.valueSkip = false
		return []Part{item}, nil

	case SequenceDelimitationItemTag:
		if _, err := r.stream.read(8); err != nil {
			return nil, err
		}
		seqTag, ok := r.loc.endSequence()
		if !ok {
			return nil, nil
		}
		return []Part{&SequenceDelimiterPart{Tag: seqTag}}, nil
	}

	return nil, newTagError(ErrorDataInvalid, offset, tag, "expected an item or sequence delimiter in encapsulated pixel data")
}

// endOfStream handles the input ending at a data element boundary. Open
// sequences and items are closed with synthesized delimiters so that data
// sets truncated between elements still produce a valid Part stream. An end
// that splits a data element header is an error.
func (r *PartReader) endOfStream() ([]Part, error) {
	if err := r.stream.ensure(1); err != errDataEnd {
		if err == nil {
			return nil, newError(ErrorDataEndedUnexpectedly, r.stream.bytesRead, "data ended in the middle of a data element header")
		}
		return nil, err
	}

	parts := r.loc.unwind()
	parts = append(parts, &EndPart{})
	r.state = stateDone
	return parts, nil
}
