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

// Part is one structural unit of a P10 stream. Parts are emitted by
// PartReader and consumed by PartWriter and Builder in strict file order.
//
// A well-formed Part sequence obeys:
//   - every DataElementHeaderPart is followed by one or more
//     DataElementValueBytesParts whose BytesRemaining strictly decreases to 0
//   - every SequenceStartPart is matched by exactly one SequenceDelimiterPart
//     at the same nesting depth
//   - SequenceItemStartPart/SequenceItemDelimiterPart nest only directly
//     under a sequence
//   - the sequence ends with exactly one EndPart
type Part interface {
	fmt.Stringer

	isPart()
}

// FilePreambleAndPrefixPart carries the 128-byte file preamble. It is always
// the first Part; for input without a preamble the bytes are all zero.
type FilePreambleAndPrefixPart struct {
	Preamble [128]byte
}

func (p *FilePreambleAndPrefixPart) isPart() {}

func (p *FilePreambleAndPrefixPart) String() string {
	return "FilePreambleAndPrefix"
}

// FileMetaInformationPart carries the group-2 File Meta Information elements
// as a small data set.
type FileMetaInformationPart struct {
	DataSet *DataSet
}

func (p *FileMetaInformationPart) isPart() {}

func (p *FileMetaInformationPart) String() string {
	return fmt.Sprintf("FileMetaInformation{%d elements}", p.DataSet.Len())
}

// DataElementHeaderPart announces a primitive data element with a defined
// length. Its value bytes follow in one or more DataElementValueBytesParts.
type DataElementHeaderPart struct {
	Tag    DataElementTag
	VR     *VR
	Length uint32
}

func (p *DataElementHeaderPart) isPart() {}

func (p *DataElementHeaderPart) String() string {
	return fmt.Sprintf("DataElementHeader{%v %v #%d}", p.Tag, p.VR, p.Length)
}

// DataElementValueBytesPart carries one chunk of a data element's value.
// Value bytes are normalized to little endian and, for string VRs, to UTF-8.
type DataElementValueBytesPart struct {
	VR             *VR
	Data           []byte
	BytesRemaining uint32
}

func (p *DataElementValueBytesPart) isPart() {}

func (p *DataElementValueBytesPart) String() string {
	return fmt.Sprintf("DataElementValueBytes{%d bytes, %d remaining}", len(p.Data), p.BytesRemaining)
}

// SequenceStartPart opens a sequence. For encapsulated pixel data the VR is
// the pixel data VR (OB or OW); for ordinary sequences it is SQ.
type SequenceStartPart struct {
	Tag DataElementTag
	VR  *VR
}

func (p *SequenceStartPart) isPart() {}

func (p *SequenceStartPart) String() string {
	return fmt.Sprintf("SequenceStart{%v %v}", p.Tag, p.VR)
}

// SequenceDelimiterPart closes the innermost open sequence. The reader emits
// it for explicit delimiters and synthesizes it for defined-length sequences.
type SequenceDelimiterPart struct {
	Tag DataElementTag
}

func (p *SequenceDelimiterPart) isPart() {}

func (p *SequenceDelimiterPart) String() string {
	return fmt.Sprintf("SequenceDelimiter{%v}", p.Tag)
}

// SequenceItemStartPart opens an item within a sequence.
type SequenceItemStartPart struct{}

func (p *SequenceItemStartPart) isPart() {}

func (p *SequenceItemStartPart) String() string {
	return "SequenceItemStart"
}

// SequenceItemDelimiterPart closes the innermost open item.
type SequenceItemDelimiterPart struct{}

func (p *SequenceItemDelimiterPart) isPart() {}

func (p *SequenceItemDelimiterPart) String() string {
	return "SequenceItemDelimiter"
}

// PixelDataItemPart announces one fragment of encapsulated pixel data. The
// first fragment in a stream is the basic offset table, possibly empty. Its
// bytes follow as DataElementValueBytesParts.
type PixelDataItemPart struct {
	Index  int
	Length uint32
}

func (p *PixelDataItemPart) isPart() {}

func (p *PixelDataItemPart) String() string {
	return fmt.Sprintf("PixelDataItem{#%d %d bytes}", p.Index, p.Length)
}

// EndPart terminates the Part sequence.
type EndPart struct{}

func (p *EndPart) isPart() {}

func (p *EndPart) String() string {
	return "End"
}
