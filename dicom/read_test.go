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
	"io"
	"reflect"
	"testing"
)

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func cat(chunks ...[]byte) []byte {
	var out []byte
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	return out
}

// fileHeader returns a preamble, "DICM" prefix, and a File Meta Information
// group declaring the given transfer syntax.
func fileHeader(tsUID string) []byte {
	uid := paddedUID(tsUID)
	tsElement := cat([]byte{0x02, 0x00, 0x10, 0x00, 'U', 'I'}, le16(uint16(len(uid))), uid)
	groupLength := cat([]byte{0x02, 0x00, 0x00, 0x00, 'U', 'L'}, le16(4), le32(uint32(len(tsElement))))
	return cat(make([]byte, 128), []byte(magicWord), groupLength, tsElement)
}

// fileMetaWith is the FileMetaInformationPart the reader emits for a stream
// produced by fileHeader.
func fileMetaWith(tsUID string) *FileMetaInformationPart {
	uid := paddedUID(tsUID)
	ds := NewDataSet()
	ds.Add(&DataElement{Tag: TransferSyntaxUIDTag, VR: UIVR, ValueField: uid, ValueLength: uint32(len(uid))})
	return &FileMetaInformationPart{DataSet: ds}
}

// collectParts feeds data to a PartReader in chunkSize pieces and returns
// every emitted Part.
func collectParts(t *testing.T, data []byte, chunkSize int, opts ...ReadOption) []Part {
	t.Helper()
	parts, err := tryCollectParts(data, chunkSize, opts...)
	if err != nil {
		t.Fatalf("unexpected error reading parts: %v", err)
	}
	return parts
}

func tryCollectParts(data []byte, chunkSize int, opts ...ReadOption) ([]Part, error) {
	if chunkSize <= 0 {
		chunkSize = len(data) + 1
	}
	reader := NewPartReader(opts...)
	var parts []Part
	off := 0
	final := false

	for {
		ps, err := reader.ReadParts()
		parts = append(parts, ps...)
		switch {
		case err == ErrDataRequired:
			if final {
				return parts, err
			}
			end := off + chunkSize
			if end >= len(data) {
				end = len(data)
				final = true
			}
			chunk := append([]byte(nil), data[off:end]...)
			if err := reader.Write(chunk, final); err != nil {
				return parts, err
			}
			off = end
		case err == io.EOF:
			return parts, nil
		case err != nil:
			return parts, err
		}
	}
}

func comparePartList(t *testing.T, got, want []Part) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d parts %v, want %d parts %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("part %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadParts_ImplicitVRDataElement(t *testing.T) {
	data := cat(
		fileHeader(ImplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x20, 0x00}, le32(8), []byte("20240101"),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ImplicitVRLittleEndianUID),
		&DataElementHeaderPart{Tag: 0x00080020, VR: DAVR, Length: 8},
		&DataElementValueBytesPart{VR: DAVR, Data: []byte("20240101"), BytesRemaining: 0},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

func TestReadParts_UndefinedLengthSequence(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x15, 0x11, 'S', 'Q', 0, 0}, le32(UndefinedLength),
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(UndefinedLength),
		[]byte{0xFE, 0xFF, 0x0D, 0xE0}, le32(0),
		[]byte{0xFE, 0xFF, 0xDD, 0xE0}, le32(0),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ExplicitVRLittleEndianUID),
		&SequenceStartPart{Tag: 0x00081115, VR: SQVR},
		&SequenceItemStartPart{},
		&SequenceItemDelimiterPart{},
		&SequenceDelimiterPart{Tag: 0x00081115},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// Defined-length sequences and items must produce the same Part stream as
// their undefined-length, delimited serialization.
func TestReadParts_DefinedLengthSequenceNormalization(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x15, 0x11, 'S', 'Q', 0, 0}, le32(8),
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(0),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ExplicitVRLittleEndianUID),
		&SequenceStartPart{Tag: 0x00081115, VR: SQVR},
		&SequenceItemStartPart{},
		&SequenceItemDelimiterPart{},
		&SequenceDelimiterPart{Tag: 0x00081115},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// The emitted Part sequence for a fixed input must be byte-for-byte identical
// whether the input arrives whole or one byte at a time; only the number of
// ErrDataRequired pauses may differ.
func TestReadParts_ChunkSizeIndependence(t *testing.T) {
	streams := map[string]struct {
		data []byte
		opts []ReadOption
	}{
		"implicit element": {
			data: cat(
				fileHeader(ImplicitVRLittleEndianUID),
				[]byte{0x08, 0x00, 0x20, 0x00}, le32(8), []byte("20240101"),
			),
		},
		"nested sequences": {
			data: cat(
				fileHeader(ExplicitVRLittleEndianUID),
				[]byte{0x08, 0x00, 0x15, 0x11, 'S', 'Q', 0, 0}, le32(UndefinedLength),
				[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(UndefinedLength),
				[]byte{0x08, 0x00, 0x50, 0x00, 'S', 'H'}, le16(4), []byte("1234"),
				[]byte{0xFE, 0xFF, 0x0D, 0xE0}, le32(0),
				[]byte{0xFE, 0xFF, 0xDD, 0xE0}, le32(0),
			),
		},
		"character set": {
			data: cat(
				fileHeader(ImplicitVRLittleEndianUID),
				[]byte{0x08, 0x00, 0x05, 0x00}, le32(10), []byte("ISO_IR 100"),
				[]byte{0x10, 0x00, 0x10, 0x00}, le32(6), []byte{0x4D, 0xFC, 0x6C, 0x6C, 0x65, 0x72},
			),
		},
		"value split across parts": {
			data: cat(
				fileHeader(ExplicitVRLittleEndianUID),
				[]byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'W', 0, 0}, le32(24), make([]byte, 24),
			),
			opts: []ReadOption{WithMaxPartSize(8)},
		},
	}

	for name, tc := range streams {
		t.Run(name, func(t *testing.T) {
			want := collectParts(t, tc.data, 0, tc.opts...)
			for _, chunkSize := range []int{1, 7, 64} {
				got := collectParts(t, tc.data, chunkSize, tc.opts...)
				comparePartList(t, got, want)
			}
		})
	}
}

// A stream without a preamble and "DICM" prefix is read as a bare data set
// with a zero preamble and empty File Meta Information.
func TestReadParts_MissingPreamble(t *testing.T) {
	data := cat([]byte{0x08, 0x00, 0x20, 0x00}, le32(8), []byte("20240101"))

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		&FileMetaInformationPart{DataSet: NewDataSet()},
		&DataElementHeaderPart{Tag: 0x00080020, VR: DAVR, Length: 8},
		&DataElementValueBytesPart{VR: DAVR, Data: []byte("20240101"), BytesRemaining: 0},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// Specific Character Set is rewritten to the UTF-8 term and subsequent
// strings are decoded to UTF-8.
func TestReadParts_SpecificCharacterSet(t *testing.T) {
	data := cat(
		fileHeader(ImplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x05, 0x00}, le32(10), []byte("ISO_IR 100"),
		[]byte{0x10, 0x00, 0x10, 0x00}, le32(6), []byte{0x4D, 0xFC, 0x6C, 0x6C, 0x65, 0x72}, // "Müller" in latin-1
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ImplicitVRLittleEndianUID),
		&DataElementHeaderPart{Tag: SpecificCharacterSetTag, VR: CSVR, Length: 10},
		&DataElementValueBytesPart{VR: CSVR, Data: []byte("ISO_IR 192"), BytesRemaining: 0},
		&DataElementHeaderPart{Tag: 0x00100010, VR: PNVR, Length: 8},
		&DataElementValueBytesPart{VR: PNVR, Data: []byte("Müller "), BytesRemaining: 0},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// Big endian values are normalized to little endian, both on the materialized
// and the streaming paths.
func TestReadParts_BigEndian(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRBigEndianUID),
		[]byte{0x00, 0x28, 0x01, 0x00, 'U', 'S', 0x00, 0x02, 0x00, 0x10}, // BitsAllocated 16
		[]byte{0x00, 0x28, 0x00, 0x11, 'U', 'S', 0x00, 0x02, 0x01, 0x80}, // Columns 384
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ExplicitVRBigEndianUID),
		&DataElementHeaderPart{Tag: BitsAllocatedTag, VR: USVR, Length: 2},
		&DataElementValueBytesPart{VR: USVR, Data: []byte{0x10, 0x00}, BytesRemaining: 0},
		&DataElementHeaderPart{Tag: 0x00280011, VR: USVR, Length: 2},
		&DataElementValueBytesPart{VR: USVR, Data: []byte{0x80, 0x01}, BytesRemaining: 0},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// A VR of two spaces in an explicit VR stream marks an element serialized
// without a VR; the VR is inferred and the short length form applies.
func TestReadParts_TwoSpaceVR(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x20, 0x00, ' ', ' '}, le16(8), []byte("20240101"),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ExplicitVRLittleEndianUID),
		&DataElementHeaderPart{Tag: 0x00080020, VR: DAVR, Length: 8},
		&DataElementValueBytesPart{VR: DAVR, Data: []byte("20240101"), BytesRemaining: 0},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// An explicit VR of UN with undefined length is a sequence whose contents
// are implicit VR little endian (CP-246).
func TestReadParts_UNSequence(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x15, 0x11, 'U', 'N', 0, 0}, le32(UndefinedLength),
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(UndefinedLength),
		[]byte{0x08, 0x00, 0x50, 0x00}, le32(4), []byte("1234"),
		[]byte{0xFE, 0xFF, 0x0D, 0xE0}, le32(0),
		[]byte{0xFE, 0xFF, 0xDD, 0xE0}, le32(0),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ExplicitVRLittleEndianUID),
		&SequenceStartPart{Tag: 0x00081115, VR: SQVR},
		&SequenceItemStartPart{},
		&DataElementHeaderPart{Tag: 0x00080050, VR: SHVR, Length: 4},
		&DataElementValueBytesPart{VR: SHVR, Data: []byte("1234"), BytesRemaining: 0},
		&SequenceItemDelimiterPart{},
		&SequenceDelimiterPart{Tag: 0x00081115},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

func TestReadParts_EncapsulatedPixelData(t *testing.T) {
	data := cat(
		fileHeader(JPEGBaselineUID),
		[]byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'B', 0, 0}, le32(UndefinedLength),
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(0), // empty basic offset table
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(4), []byte{1, 2, 3, 4},
		[]byte{0xFE, 0xFF, 0xDD, 0xE0}, le32(0),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(JPEGBaselineUID),
		&SequenceStartPart{Tag: PixelDataTag, VR: OBVR},
		&PixelDataItemPart{Index: 0, Length: 0},
		&DataElementValueBytesPart{VR: OBVR, Data: []byte{}, BytesRemaining: 0},
		&PixelDataItemPart{Index: 1, Length: 4},
		&DataElementValueBytesPart{VR: OBVR, Data: []byte{1, 2, 3, 4}, BytesRemaining: 0},
		&SequenceDelimiterPart{Tag: PixelDataTag},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

func TestReadParts_MaxPartSize(t *testing.T) {
	value := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'W', 0, 0}, le32(16), value,
	)

	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ExplicitVRLittleEndianUID),
		&DataElementHeaderPart{Tag: PixelDataTag, VR: OWVR, Length: 16},
		&DataElementValueBytesPart{VR: OWVR, Data: value[:8], BytesRemaining: 8},
		&DataElementValueBytesPart{VR: OWVR, Data: value[8:], BytesRemaining: 0},
		&EndPart{},
	}
	// the same full-size chunks are emitted regardless of the input chunking
	for _, chunkSize := range []int{0, 1, 5} {
		got := collectParts(t, data, chunkSize, WithMaxPartSize(8))
		comparePartList(t, got, want)
	}
}

// Input ending at a data element boundary closes open sequences and items
// with synthesized delimiters.
func TestReadParts_TruncatedAtElementBoundary(t *testing.T) {
	data := cat(
		fileHeader(ImplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x10, 0x11}, le32(UndefinedLength),
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(UndefinedLength),
		[]byte{0x08, 0x00, 0x20, 0x00}, le32(8), []byte("20240101"),
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ImplicitVRLittleEndianUID),
		&SequenceStartPart{Tag: 0x00081110, VR: SQVR},
		&SequenceItemStartPart{},
		&DataElementHeaderPart{Tag: 0x00080020, VR: DAVR, Length: 8},
		&DataElementValueBytesPart{VR: DAVR, Data: []byte("20240101"), BytesRemaining: 0},
		&SequenceItemDelimiterPart{},
		&SequenceDelimiterPart{Tag: 0x00081110},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

// A sequence delimiter with no open sequence is skipped; group length
// elements and trailing padding are consumed without Parts.
func TestReadParts_LeniencesAndSwallowedElements(t *testing.T) {
	data := cat(
		fileHeader(ImplicitVRLittleEndianUID),
		[]byte{0xFE, 0xFF, 0xDD, 0xE0}, le32(0), // rogue sequence delimiter
		[]byte{0x08, 0x00, 0x00, 0x00}, le32(4), le32(16), // group length
		[]byte{0x08, 0x00, 0x20, 0x00}, le32(8), []byte("20240101"),
		[]byte{0xFC, 0xFF, 0xFC, 0xFF}, le32(4), []byte{0, 0, 0, 0}, // trailing padding
	)

	got := collectParts(t, data, 0)
	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(ImplicitVRLittleEndianUID),
		&DataElementHeaderPart{Tag: 0x00080020, VR: DAVR, Length: 8},
		&DataElementValueBytesPart{VR: DAVR, Data: []byte("20240101"), BytesRemaining: 0},
		&EndPart{},
	}
	comparePartList(t, got, want)
}

func TestReadParts_Deflated(t *testing.T) {
	body := cat(
		[]byte{0x08, 0x00, 0x20, 0x00, 'D', 'A'}, le16(8), []byte("20240101"),
		[]byte{0x08, 0x00, 0x50, 0x00, 'S', 'H'}, le16(4), []byte("1234"),
	)
	var compressed bytes.Buffer
	flater, err := flate.NewWriter(&compressed, 6)
	if err != nil {
		t.Fatalf("unexpected error creating flate writer: %v", err)
	}
	if _, err := flater.Write(body); err != nil {
		t.Fatalf("unexpected error compressing: %v", err)
	}
	if err := flater.Close(); err != nil {
		t.Fatalf("unexpected error closing flate writer: %v", err)
	}
	data := cat(fileHeader(DeflatedExplicitVRLittleEndianUID), compressed.Bytes())

	want := []Part{
		&FilePreambleAndPrefixPart{},
		fileMetaWith(DeflatedExplicitVRLittleEndianUID),
		&DataElementHeaderPart{Tag: 0x00080020, VR: DAVR, Length: 8},
		&DataElementValueBytesPart{VR: DAVR, Data: []byte("20240101"), BytesRemaining: 0},
		&DataElementHeaderPart{Tag: 0x00080050, VR: SHVR, Length: 4},
		&DataElementValueBytesPart{VR: SHVR, Data: []byte("1234"), BytesRemaining: 0},
		&EndPart{},
	}

	// one byte at a time exercises resuming the inflater across stalls
	for _, chunkSize := range []int{1, 5, 0} {
		got := collectParts(t, data, chunkSize)
		comparePartList(t, got, want)
	}
}

func TestReadParts_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		opts []ReadOption
		kind ErrorKind
	}{
		{
			name: "unsupported transfer syntax",
			data: fileHeader("1.2.3.4"),
			kind: ErrorTransferSyntaxNotSupported,
		},
		{
			name: "data ends inside a header",
			data: cat(fileHeader(ImplicitVRLittleEndianUID), []byte{0x08, 0x00, 0x20}),
			kind: ErrorDataEndedUnexpectedly,
		},
		{
			name: "data ends inside a value",
			data: cat(fileHeader(ImplicitVRLittleEndianUID), []byte{0x08, 0x00, 0x20, 0x00}, le32(8), []byte("2024")),
			kind: ErrorDataEndedUnexpectedly,
		},
		{
			name: "invalid explicit VR",
			data: cat(fileHeader(ExplicitVRLittleEndianUID), []byte{0x08, 0x00, 0x20, 0x00, 'Z', 'Z'}, le16(0)),
			kind: ErrorDataInvalid,
		},
		{
			name: "rogue item delimiter",
			data: cat(fileHeader(ImplicitVRLittleEndianUID), []byte{0xFE, 0xFF, 0x0D, 0xE0}, le32(0)),
			kind: ErrorDataInvalid,
		},
		{
			name: "undefined length on a short VR",
			data: cat(fileHeader(ExplicitVRLittleEndianUID), []byte{0x08, 0x00, 0x20, 0x00, 'O', 'B', 0, 0}, le32(UndefinedLength)),
			kind: ErrorDataInvalid,
		},
		{
			name: "sequence depth exceeded",
			data: cat(
				fileHeader(ExplicitVRLittleEndianUID),
				[]byte{0x08, 0x00, 0x15, 0x11, 'S', 'Q', 0, 0}, le32(UndefinedLength),
				[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(UndefinedLength),
				[]byte{0x08, 0x00, 0x40, 0x11, 'S', 'Q', 0, 0}, le32(UndefinedLength),
			),
			opts: []ReadOption{WithMaxSequenceDepth(1)},
			kind: ErrorMaximumExceeded,
		},
		{
			name: "materialized value too large",
			data: cat(
				fileHeader(ImplicitVRLittleEndianUID),
				[]byte{0x08, 0x00, 0x50, 0x00}, le32(64), make([]byte, 64),
			),
			opts: []ReadOption{WithMaxPartSize(8), WithMaxStringSize(48)},
			kind: ErrorMaximumExceeded,
		},
		{
			name: "file meta information too large",
			data: fileHeader(ImplicitVRLittleEndianUID),
			opts: []ReadOption{WithMaxPartSize(8), WithMaxStringSize(24)},
			kind: ErrorMaximumExceeded,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tryCollectParts(tc.data, 0, tc.opts...)
			if err == nil {
				t.Fatal("got no error, want one")
			}
			if !IsKind(err, tc.kind) {
				t.Fatalf("got error %v, want kind %v", err, tc.kind)
			}
		})
	}
}

func TestReadParts_WriteAfterFinal(t *testing.T) {
	reader := NewPartReader()
	if err := reader.Write(nil, true); err != nil {
		t.Fatalf("unexpected error on final write: %v", err)
	}
	err := reader.Write([]byte{1}, false)
	if !IsKind(err, ErrorWriteAfterCompletion) {
		t.Fatalf("got error %v, want kind %v", err, ErrorWriteAfterCompletion)
	}
}

func TestReadParts_EOFAfterEnd(t *testing.T) {
	data := cat(fileHeader(ImplicitVRLittleEndianUID))
	reader := NewPartReader()
	if err := reader.Write(data, true); err != nil {
		t.Fatalf("unexpected error writing: %v", err)
	}
	if _, err := reader.ReadParts(); err != nil {
		t.Fatalf("unexpected error reading parts: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := reader.ReadParts(); err != io.EOF {
			t.Fatalf("got error %v, want io.EOF", err)
		}
	}
}
