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
	"fmt"
	"io"
)

const readChunkSize = 64 * 1024

// Identification of this implementation in generated File Meta Information.
const (
	implementationClassUID    = "1.2.826.0.1.3680043.10.188.1"
	implementationVersionName = "DCMFX_GO_100"
)

// ReadDataSet reads a complete DICOM Part 10 stream from r and materializes
// it into a DataSet. File Meta Information elements are included in the
// result.
func ReadDataSet(r io.Reader, opts ...ReadOption) (*DataSet, error) {
	reader := NewPartReader(opts...)
	builder := NewBuilder()
	final := false

	for !builder.Complete() {
		parts, err := reader.ReadParts()
		if err == ErrDataRequired {
			if final {
				return nil, newError(ErrorDataEndedUnexpectedly, 0, "part reader stalled on a completed stream")
			}
			buf := make([]byte, readChunkSize)
			n, readErr := r.Read(buf)
			if n > 0 {
				if err := reader.Write(buf[:n], false); err != nil {
					return nil, err
				}
			}
			if readErr == io.EOF {
				if err := reader.Write(nil, true); err != nil {
					return nil, err
				}
				final = true
			} else if readErr != nil {
				return nil, fmt.Errorf("dicom: reading input: %w", readErr)
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			if err := builder.AddPart(part); err != nil {
				return nil, err
			}
		}
	}

	return builder.DataSet(), nil
}

// WriteDataSet serializes a DataSet to w as a DICOM Part 10 stream. The
// transfer syntax comes from the data set's Transfer Syntax UID element;
// explicit VR little endian is used, and recorded in the written File Meta
// Information, when the element is absent.
func WriteDataSet(w io.Writer, ds *DataSet, opts ...WriteOption) error {
	writer := NewPartWriter(opts...)

	emit := func(part Part) error {
		if err := writer.WritePart(part); err != nil {
			return err
		}
		if b := writer.Bytes(); len(b) > 0 {
			if _, err := w.Write(b); err != nil {
				return fmt.Errorf("dicom: writing output: %w", err)
			}
		}
		return nil
	}

	if err := dataSetToParts(ds, emit); err != nil {
		return err
	}
	if b := writer.Bytes(); len(b) > 0 {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("dicom: writing output: %w", err)
		}
	}
	return nil
}

// dataSetToParts tokenizes a DataSet into the Part stream that PartWriter
// consumes, emitting each Part through emit.
func dataSetToParts(ds *DataSet, emit func(Part) error) error {
	if err := emit(&FilePreambleAndPrefixPart{}); err != nil {
		return err
	}

	fmi := NewDataSet()
	for tag, element := range ds.Elements {
		if tag.IsMetadataElement() && tag != FileMetaInformationGroupLengthTag {
			fmi.Add(element)
		}
	}
	if _, ok := fmi.transferSyntaxUID(); !ok {
		fmi.Add(&DataElement{
			Tag:         TransferSyntaxUIDTag,
			VR:          UIVR,
			ValueField:  paddedUID(ExplicitVRLittleEndianUID),
			ValueLength: uint32(len(paddedUID(ExplicitVRLittleEndianUID))),
		})
	}
	if fmi.Get(ImplementationClassUIDTag) == nil {
		uid := paddedUID(implementationClassUID)
		fmi.Add(&DataElement{
			Tag:         ImplementationClassUIDTag,
			VR:          UIVR,
			ValueField:  uid,
			ValueLength: uint32(len(uid)),
		})
		fmi.Add(&DataElement{
			Tag:         ImplementationVersionNameTag,
			VR:          SHVR,
			ValueField:  []byte(implementationVersionName),
			ValueLength: uint32(len(implementationVersionName)),
		})
	}
	if err := emit(&FileMetaInformationPart{DataSet: fmi}); err != nil {
		return err
	}

	if err := dataSetElementsToParts(ds, emit, true); err != nil {
		return err
	}
	return emit(&EndPart{})
}

func dataSetElementsToParts(ds *DataSet, emit func(Part) error, skipMeta bool) error {
	for _, element := range ds.SortedElements() {
		if skipMeta && element.Tag.IsMetadataElement() {
			continue
		}

		switch value := element.ValueField.(type) {
		case *Sequence:
			if err := emit(&SequenceStartPart{Tag: element.Tag, VR: SQVR}); err != nil {
				return err
			}
			for _, item := range value.Items {
				if err := emit(&SequenceItemStartPart{}); err != nil {
					return err
				}
				if err := dataSetElementsToParts(item, emit, false); err != nil {
					return err
				}
				if err := emit(&SequenceItemDelimiterPart{}); err != nil {
					return err
				}
			}
			if err := emit(&SequenceDelimiterPart{Tag: element.Tag}); err != nil {
				return err
			}

		case [][]byte:
			if err := emit(&SequenceStartPart{Tag: element.Tag, VR: element.VR}); err != nil {
				return err
			}
			for i, fragment := range value {
				if err := emit(&PixelDataItemPart{Index: i, Length: uint32(len(fragment))}); err != nil {
					return err
				}
				if err := emit(&DataElementValueBytesPart{VR: element.VR, Data: fragment, BytesRemaining: 0}); err != nil {
					return err
				}
			}
			if err := emit(&SequenceDelimiterPart{Tag: element.Tag}); err != nil {
				return err
			}

		case []byte:
			header := &DataElementHeaderPart{Tag: element.Tag, VR: element.VR, Length: uint32(len(value))}
			if err := emit(header); err != nil {
				return err
			}
			if err := emit(&DataElementValueBytesPart{VR: element.VR, Data: value, BytesRemaining: 0}); err != nil {
				return err
			}

		default:
			return newTagError(ErrorPartStreamInvalid, 0, element.Tag, "data element has an unsupported value type %T", element.ValueField)
		}
	}
	return nil
}

// paddedUID returns a UID value padded with a trailing NUL to an even
// length.
func paddedUID(uid string) []byte {
	value := []byte(uid)
	if len(value)%2 == 1 {
		value = append(value, 0)
	}
	return value
}
