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
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

type writeState int

const (
	writeStatePreamble writeState = iota
	writeStateFileMeta
	writeStateDataSet
	writeStateDone
)

type writeNesting int

const (
	nestingSequence writeNesting = iota
	nestingItem
	nestingPixelData
)

// PartWriter converts a stream of Parts into DICOM Part 10 bytes, inverting
// PartReader. Parts are pushed with WritePart and the serialized bytes are
// drained with Bytes.
//
// The transfer syntax comes from the File Meta Information Part. Sequences
// and items are always serialized with undefined lengths and explicit
// delimiters, so Parts can be written as they arrive without buffering.
type PartWriter struct {
	opts writeOptions

	output  bytes.Buffer
	dst     io.Writer
	flater  *flate.Writer
	written uint64

	state  writeState
	syntax *transferSyntax

	nesting        []writeNesting
	valueRemaining uint32
	inValue        bool

	failure error
}

// NewPartWriter returns a PartWriter expecting the start of a Part stream.
func NewPartWriter(opts ...WriteOption) *PartWriter {
	w := &PartWriter{opts: applyWriteOptions(opts)}
	w.dst = &w.output
	return w
}

// Bytes drains and returns the Part 10 bytes serialized so far.
func (w *PartWriter) Bytes() []byte {
	out := append([]byte(nil), w.output.Bytes()...)
	w.output.Reset()
	return out
}

// WritePart serializes the next Part. Parts must arrive in the order
// PartReader emits them; a Part in an illegal position fails with an Error
// of kind ErrorPartStreamInvalid.
func (w *PartWriter) WritePart(part Part) error {
	if w.failure != nil {
		return w.failure
	}
	if err := w.writePart(part); err != nil {
		w.failure = err
		return err
	}
	return nil
}

func (w *PartWriter) writePart(part Part) error {
	if w.state == writeStateDone {
		return newError(ErrorWriteAfterCompletion, w.written, "part received after the stream ended")
	}

	switch p := part.(type) {
	case *FilePreambleAndPrefixPart:
		return w.writePreamble(p)
	case *FileMetaInformationPart:
		return w.writeFileMeta(p)
	case *DataElementHeaderPart:
		return w.writeDataElementHeader(p)
	case *DataElementValueBytesPart:
		return w.writeValueBytes(p)
	case *SequenceStartPart:
		return w.writeSequenceStart(p)
	case *SequenceDelimiterPart:
		return w.writeSequenceDelimiter(p)
	case *SequenceItemStartPart:
		return w.writeItemStart()
	case *SequenceItemDelimiterPart:
		return w.writeItemDelimiter()
	case *PixelDataItemPart:
		return w.writePixelDataItem(p)
	case *EndPart:
		return w.writeEnd()
	}
	return newError(ErrorPartStreamInvalid, w.written, "unrecognized part %v", part)
}

func (w *PartWriter) writePreamble(p *FilePreambleAndPrefixPart) error {
	if w.state != writeStatePreamble {
		return newError(ErrorPartStreamInvalid, w.written, "file preamble part out of order")
	}
	w.writeBytes(p.Preamble[:])
	w.writeBytes([]byte(magicWord))
	w.state = writeStateFileMeta
	return nil
}

// writeFileMeta serializes the File Meta Information group in explicit VR
// little endian, with a freshly computed group length element first.
func (w *PartWriter) writeFileMeta(p *FileMetaInformationPart) error {
	if w.state != writeStateFileMeta {
		return newError(ErrorPartStreamInvalid, w.written, "file meta information part out of order")
	}

	syntaxUID := ExplicitVRLittleEndianUID
	if uid, ok := p.DataSet.transferSyntaxUID(); ok && uid != "" {
		syntaxUID = uid
	}
	syntax, known := lookupTransferSyntax(syntaxUID)
	if !known {
		return newError(ErrorTransferSyntaxNotSupported, w.written, "transfer syntax %q is not supported", syntaxUID)
	}
	w.syntax = syntax

	var group bytes.Buffer
	for _, element := range p.DataSet.SortedElements() {
		if element.Tag == FileMetaInformationGroupLengthTag {
			continue
		}
		if element.Tag.GroupNumber() != 0x0002 {
			return newTagError(ErrorPartStreamInvalid, w.written, element.Tag, "file meta information may only contain group 0002 elements")
		}
		value, ok := element.ValueField.([]byte)
		if !ok {
			return newTagError(ErrorPartStreamInvalid, w.written, element.Tag, "file meta information element has a non-byte value")
		}
		if err := writeElementTo(&group, binary.LittleEndian, false, element.Tag, element.VR, value); err != nil {
			return err
		}
	}

	groupLength := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLength, uint32(group.Len()))
	var header bytes.Buffer
	if err := writeElementTo(&header, binary.LittleEndian, false, FileMetaInformationGroupLengthTag, ULVR, groupLength); err != nil {
		return err
	}
	w.writeBytes(header.Bytes())
	w.writeBytes(group.Bytes())

	if w.syntax.Deflated {
		flater, err := flate.NewWriter(&w.output, w.opts.compressionLevel)
		if err != nil {
			return fmt.Errorf("dicom: creating deflate writer: %w", err)
		}
		w.flater = flater
		w.dst = flater
	}
	w.state = writeStateDataSet
	return nil
}

func (w *PartWriter) writeDataElementHeader(p *DataElementHeaderPart) error {
	if err := w.requireElementPosition(); err != nil {
		return err
	}
	if p.Length == UndefinedLength {
		return newTagError(ErrorPartStreamInvalid, w.written, p.Tag, "data element header with undefined length")
	}

	order := w.syntax.ByteOrder
	w.writeTag(order, p.Tag)
	if w.syntax.Implicit {
		w.writeUint32(order, p.Length)
	} else if err := w.writeExplicitVRAndLength(order, p.Tag, p.VR, p.Length); err != nil {
		return err
	}

	// every header is followed by value bytes parts, even for a zero length
	w.inValue = true
	w.valueRemaining = p.Length
	return nil
}

func (w *PartWriter) writeValueBytes(p *DataElementValueBytesPart) error {
	if !w.inValue {
		return newError(ErrorPartStreamInvalid, w.written, "value bytes with no open data element")
	}
	if uint32(len(p.Data)) > w.valueRemaining {
		return newError(ErrorPartStreamInvalid, w.written, "value bytes exceed the declared data element length")
	}

	data := p.Data
	if w.syntax.ByteOrder == binary.BigEndian && p.VR != nil && p.VR.swapSize > 1 {
		data = append([]byte(nil), data...)
		swapBytes(data, p.VR.swapSize)
	}
	w.writeBytes(data)

	w.valueRemaining -= uint32(len(p.Data))
	if w.valueRemaining == 0 {
		w.inValue = false
	}
	return nil
}

func (w *PartWriter) writeSequenceStart(p *SequenceStartPart) error {
	if err := w.requireElementPosition(); err != nil {
		return err
	}

	order := w.syntax.ByteOrder
	w.writeTag(order, p.Tag)
	if p.VR == OBVR || p.VR == OWVR {
		// encapsulated pixel data
		if w.syntax.Implicit {
			w.writeUint32(order, UndefinedLength)
		} else if err := w.writeExplicitVRAndLength(order, p.Tag, p.VR, UndefinedLength); err != nil {
			return err
		}
		w.nesting = append(w.nesting, nestingPixelData)
		return nil
	}

	if w.syntax.Implicit {
		w.writeUint32(order, UndefinedLength)
	} else if err := w.writeExplicitVRAndLength(order, p.Tag, SQVR, UndefinedLength); err != nil {
		return err
	}
	w.nesting = append(w.nesting, nestingSequence)
	return nil
}

func (w *PartWriter) writeSequenceDelimiter(p *SequenceDelimiterPart) error {
	if w.inValue || len(w.nesting) == 0 {
		return newError(ErrorPartStreamInvalid, w.written, "sequence delimiter with no open sequence")
	}
	top := w.nesting[len(w.nesting)-1]
	if top != nestingSequence && top != nestingPixelData {
		return newError(ErrorPartStreamInvalid, w.written, "sequence delimiter with no open sequence")
	}
	w.nesting = w.nesting[:len(w.nesting)-1]

	order := w.syntax.ByteOrder
	w.writeTag(order, SequenceDelimitationItemTag)
	w.writeUint32(order, 0)
	return nil
}

func (w *PartWriter) writeItemStart() error {
	if w.inValue || len(w.nesting) == 0 || w.nesting[len(w.nesting)-1] != nestingSequence {
		return newError(ErrorPartStreamInvalid, w.written, "item start outside of a sequence")
	}
	w.nesting = append(w.nesting, nestingItem)

	order := w.syntax.ByteOrder
	w.writeTag(order, ItemTag)
	w.writeUint32(order, UndefinedLength)
	return nil
}

func (w *PartWriter) writeItemDelimiter() error {
	if w.inValue || len(w.nesting) == 0 || w.nesting[len(w.nesting)-1] != nestingItem {
		return newError(ErrorPartStreamInvalid, w.written, "item delimiter with no open item")
	}
	w.nesting = w.nesting[:len(w.nesting)-1]

	order := w.syntax.ByteOrder
	w.writeTag(order, ItemDelimitationItemTag)
	w.writeUint32(order, 0)
	return nil
}

func (w *PartWriter) writePixelDataItem(p *PixelDataItemPart) error {
	if w.inValue || len(w.nesting) == 0 || w.nesting[len(w.nesting)-1] != nestingPixelData {
		return newError(ErrorPartStreamInvalid, w.written, "pixel data item outside of encapsulated pixel data")
	}
	if p.Length == UndefinedLength {
		return newError(ErrorPartStreamInvalid, w.written, "pixel data item with undefined length")
	}

	order := w.syntax.ByteOrder
	w.writeTag(order, ItemTag)
	w.writeUint32(order, p.Length)

	w.inValue = true
	w.valueRemaining = p.Length
	return nil
}

func (w *PartWriter) writeEnd() error {
	if w.state != writeStateDataSet || w.inValue || len(w.nesting) > 0 {
		return newError(ErrorPartStreamInvalid, w.written, "end part before the data set is complete")
	}
	if w.flater != nil {
		if err := w.flater.Close(); err != nil {
			return fmt.Errorf("dicom: closing deflate writer: %w", err)
		}
		w.flater = nil
		w.dst = &w.output
	}
	w.state = writeStateDone
	return nil
}

func (w *PartWriter) requireElementPosition() error {
	if w.state != writeStateDataSet {
		return newError(ErrorPartStreamInvalid, w.written, "data element before file meta information")
	}
	if w.inValue {
		return newError(ErrorPartStreamInvalid, w.written, "data element while value bytes are pending")
	}
	if len(w.nesting) > 0 && w.nesting[len(w.nesting)-1] != nestingItem {
		return newError(ErrorPartStreamInvalid, w.written, "data element directly inside a sequence")
	}
	return nil
}

// writeExplicitVRAndLength writes the VR code and length fields of an
// explicit VR header. Short-form VRs carry a 16-bit length; a length that
// does not fit is an error.
func (w *PartWriter) writeExplicitVRAndLength(order binary.ByteOrder, tag DataElementTag, vr *VR, length uint32) error {
	if vr == nil {
		return newTagError(ErrorPartStreamInvalid, w.written, tag, "data element header has no VR")
	}
	w.writeBytes([]byte(vr.Name))
	if vr.longLength {
		w.writeBytes([]byte{0, 0})
		w.writeUint32(order, length)
		return nil
	}
	if length > 0xffff {
		return newTagError(ErrorDataInvalid, w.written, tag, "length %d does not fit the 16-bit length field of VR %s", length, vr.Name)
	}
	w.writeUint16(order, uint16(length))
	return nil
}

func (w *PartWriter) writeBytes(b []byte) {
	w.dst.Write(b)
	w.written += uint64(len(b))
}

func (w *PartWriter) writeTag(order binary.ByteOrder, tag DataElementTag) {
	w.writeUint16(order, tag.GroupNumber())
	w.writeUint16(order, tag.ElementNumber())
}

func (w *PartWriter) writeUint16(order binary.ByteOrder, v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	w.writeBytes(b[:])
}

func (w *PartWriter) writeUint32(order binary.ByteOrder, v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	w.writeBytes(b[:])
}

// writeElementTo serializes a complete data element with a defined length.
func writeElementTo(dst *bytes.Buffer, order binary.ByteOrder, implicit bool, tag DataElementTag, vr *VR, value []byte) error {
	var tagBytes [8]byte
	order.PutUint16(tagBytes[0:2], tag.GroupNumber())
	order.PutUint16(tagBytes[2:4], tag.ElementNumber())

	if implicit {
		order.PutUint32(tagBytes[4:8], uint32(len(value)))
		dst.Write(tagBytes[:8])
		dst.Write(value)
		return nil
	}

	dst.Write(tagBytes[:4])
	if vr == nil {
		return newTagError(ErrorPartStreamInvalid, 0, tag, "data element has no VR")
	}
	dst.WriteString(vr.Name)
	if vr.longLength {
		var lengthBytes [6]byte
		order.PutUint32(lengthBytes[2:6], uint32(len(value)))
		dst.Write(lengthBytes[:])
	} else {
		if len(value) > 0xffff {
			return newTagError(ErrorDataInvalid, 0, tag, "length %d does not fit the 16-bit length field of VR %s", len(value), vr.Name)
		}
		var lengthBytes [2]byte
		order.PutUint16(lengthBytes[:], uint16(len(value)))
		dst.Write(lengthBytes[:])
	}
	dst.Write(value)
	return nil
}
