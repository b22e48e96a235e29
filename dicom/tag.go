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

import "fmt"

// DataElementTag is a unique identifier for a Data Element composed of an
// ordered pair of numbers called the group number and the element number as
// specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10.
//
// The least significant 16 bits is the element number. The most significant
// 16 bits is the group number.
type DataElementTag uint32

// GroupNumber returns the group number component of the DataElementTag
func (t DataElementTag) GroupNumber() uint16 {
	return uint16(t >> 16)
}

// ElementNumber returns the element number component of the DataElementTag
func (t DataElementTag) ElementNumber() uint16 {
	return uint16(t & 0xFFFF)
}

// IsMetadataElement is true if and only if the Data Element is a meta data element
func (t DataElementTag) IsMetadataElement() bool {
	return t.GroupNumber() == uint16(0x0002)
}

// IsPrivate is true for tags in odd-numbered groups, which are reserved for
// private data elements.
func (t DataElementTag) IsPrivate() bool {
	return t.GroupNumber()&1 == 1
}

// IsPrivateCreator is true for elements that reserve a private block, i.e.
// elements 0x0010 through 0x00FF in a private group.
func (t DataElementTag) IsPrivateCreator() bool {
	e := t.ElementNumber()
	return t.IsPrivate() && e >= 0x0010 && e <= 0x00FF
}

// IsGroupLength is true for group length elements (gggg,0000).
func (t DataElementTag) IsGroupLength() bool {
	return t.ElementNumber() == 0
}

func (t DataElementTag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.GroupNumber(), t.ElementNumber())
}

func tagFromGroupElement(group, element uint16) DataElementTag {
	return DataElementTag(uint32(group)<<16 | uint32(element))
}

// Well-known tags used by the codec itself. The full mapping of tags to
// names and VRs lives in dictionary.go.
const (
	FileMetaInformationGroupLengthTag DataElementTag = 0x00020000
	FileMetaInformationVersionTag     DataElementTag = 0x00020001
	MediaStorageSOPClassUIDTag        DataElementTag = 0x00020002
	MediaStorageSOPInstanceUIDTag     DataElementTag = 0x00020003
	TransferSyntaxUIDTag              DataElementTag = 0x00020010
	ImplementationClassUIDTag         DataElementTag = 0x00020012
	ImplementationVersionNameTag      DataElementTag = 0x00020013

	SpecificCharacterSetTag DataElementTag = 0x00080005

	BitsAllocatedTag                  DataElementTag = 0x00280100
	PixelRepresentationTag            DataElementTag = 0x00280103
	SmallestValidPixelValueTag        DataElementTag = 0x00280104
	LargestValidPixelValueTag         DataElementTag = 0x00280105
	SmallestImagePixelValueTag        DataElementTag = 0x00280106
	LargestImagePixelValueTag         DataElementTag = 0x00280107
	SmallestPixelValueInSeriesTag     DataElementTag = 0x00280108
	LargestPixelValueInSeriesTag      DataElementTag = 0x00280109
	SmallestImagePixelValueInPlaneTag DataElementTag = 0x00280110
	LargestImagePixelValueInPlaneTag  DataElementTag = 0x00280111
	PixelPaddingValueTag              DataElementTag = 0x00280120
	PixelPaddingRangeLimitTag         DataElementTag = 0x00280121

	RedPaletteColorLookupTableDataTag   DataElementTag = 0x00281201
	GreenPaletteColorLookupTableDataTag DataElementTag = 0x00281202
	BluePaletteColorLookupTableDataTag  DataElementTag = 0x00281203
	LUTDataTag                          DataElementTag = 0x00283006

	WaveformBitsStoredTag    DataElementTag = 0x003A021A
	ChannelMinimumValueTag   DataElementTag = 0x54000110
	ChannelMaximumValueTag   DataElementTag = 0x54000112
	WaveformBitsAllocatedTag DataElementTag = 0x54001004
	WaveformPaddingValueTag  DataElementTag = 0x5400100A
	WaveformDataTag          DataElementTag = 0x54001010

	// OverlayDataTag is the (60xx,3000) wildcard with the repeating group
	// bits cleared.
	OverlayDataTag DataElementTag = 0x60003000

	PixelDataTag DataElementTag = 0x7FE00010

	ItemTag                     DataElementTag = 0xFFFEE000
	ItemDelimitationItemTag     DataElementTag = 0xFFFEE00D
	SequenceDelimitationItemTag DataElementTag = 0xFFFEE0DD

	DataSetTrailingPaddingTag DataElementTag = 0xFFFCFFFC
)
