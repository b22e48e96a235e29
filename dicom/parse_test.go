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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDataSet(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x20, 0x00, 'D', 'A'}, le16(8), []byte("20240101"),
		// (0008,1110) SQ, undefined length, one item holding (0008,0050) SH
		[]byte{0x08, 0x00, 0x10, 0x11, 'S', 'Q', 0x00, 0x00}, le32(UndefinedLength),
		[]byte{0xFE, 0xFF, 0x00, 0xE0}, le32(UndefinedLength),
		[]byte{0x08, 0x00, 0x50, 0x00, 'S', 'H'}, le16(4), []byte("1234"),
		[]byte{0xFE, 0xFF, 0x0D, 0xE0}, le32(0),
		[]byte{0xFE, 0xFF, 0xDD, 0xE0}, le32(0),
	)

	ds, err := ReadDataSet(bytes.NewReader(data))
	require.NoError(t, err)

	date, ok := ds.GetString(0x00080020)
	require.True(t, ok)
	assert.Equal(t, "20240101", date)

	seq, ok := ds.Get(0x00081110).ValueField.(*Sequence)
	require.True(t, ok)
	require.Len(t, seq.Items, 1)
	accession, ok := seq.Items[0].GetString(0x00080050)
	require.True(t, ok)
	assert.Equal(t, "1234", accession)
}

func TestReadDataSet_Truncated(t *testing.T) {
	data := cat(
		fileHeader(ExplicitVRLittleEndianUID),
		[]byte{0x08, 0x00, 0x20, 0x00, 'D', 'A'}, le16(8), []byte("2024"),
	)

	_, err := ReadDataSet(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorDataEndedUnexpectedly), "got %v", err)
}

func TestWriteDataSet_RoundTrip(t *testing.T) {
	original := NewDataSet()
	original.Add(&DataElement{
		Tag: TransferSyntaxUIDTag, VR: UIVR,
		ValueField:  paddedUID(ExplicitVRLittleEndianUID),
		ValueLength: uint32(len(paddedUID(ExplicitVRLittleEndianUID))),
	})
	original.Add(&DataElement{Tag: 0x00080020, VR: DAVR, ValueField: []byte("20240101"), ValueLength: 8})
	original.Add(&DataElement{Tag: 0x00100010, VR: PNVR, ValueField: []byte("Vincent "), ValueLength: 8})

	item := NewDataSet()
	item.Add(&DataElement{Tag: 0x00080050, VR: SHVR, ValueField: []byte("1234"), ValueLength: 4})
	original.Add(&DataElement{
		Tag: 0x00081110, VR: SQVR,
		ValueField:  &Sequence{Items: []*DataSet{item}},
		ValueLength: UndefinedLength,
	})

	var buf bytes.Buffer
	require.NoError(t, WriteDataSet(&buf, original))

	decoded, err := ReadDataSet(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	// the written stream additionally identifies this implementation
	require.Equal(t, original.Len()+2, decoded.Len())
	assert.NotNil(t, decoded.Get(ImplementationClassUIDTag))
	assert.NotNil(t, decoded.Get(ImplementationVersionNameTag))

	for _, element := range original.SortedElements() {
		got := decoded.Get(element.Tag)
		require.NotNil(t, got, "missing %v", element.Tag)
		assert.Equal(t, element.VR, got.VR, "VR of %v", element.Tag)
	}

	seq, ok := decoded.Get(0x00081110).ValueField.(*Sequence)
	require.True(t, ok)
	require.Len(t, seq.Items, 1)
	accession, ok := seq.Items[0].GetString(0x00080050)
	require.True(t, ok)
	assert.Equal(t, "1234", accession)
}

func TestWriteDataSet_DefaultTransferSyntax(t *testing.T) {
	ds := NewDataSet()
	ds.Add(&DataElement{Tag: 0x00080020, VR: DAVR, ValueField: []byte("20240101"), ValueLength: 8})

	var buf bytes.Buffer
	require.NoError(t, WriteDataSet(&buf, ds))

	decoded, err := ReadDataSet(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	// a Transfer Syntax UID element is inserted when the source has none
	uid, ok := decoded.transferSyntaxUID()
	require.True(t, ok)
	assert.Equal(t, ExplicitVRLittleEndianUID, uid)
}

func TestWriteDataSet_EncapsulatedPixelData(t *testing.T) {
	ds := NewDataSet()
	ds.Add(&DataElement{
		Tag: TransferSyntaxUIDTag, VR: UIVR,
		ValueField:  paddedUID("1.2.840.10008.1.2.1"),
		ValueLength: 20,
	})
	ds.Add(&DataElement{
		Tag: PixelDataTag, VR: OBVR,
		ValueField:  [][]byte{{}, {1, 2, 3, 4}},
		ValueLength: UndefinedLength,
	})

	var buf bytes.Buffer
	require.NoError(t, WriteDataSet(&buf, ds))

	decoded, err := ReadDataSet(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	fragments, ok := decoded.Get(PixelDataTag).ValueField.([][]byte)
	require.True(t, ok)
	require.Len(t, fragments, 2)
	assert.Empty(t, fragments[0])
	assert.Equal(t, []byte{1, 2, 3, 4}, fragments[1])
}
