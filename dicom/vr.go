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
)

// vrType is to group common encodings together
type vrType int

const (
	// textVR is for value fields that will be interpreted as simple text with space padding
	textVR vrType = iota

	// numberBinaryVR is for value fields that are parsed as binary numbers
	numberBinaryVR

	// bulkDataVR groups sequences of binary numbers
	bulkDataVR

	// uniqueIdentifierVR is for VR: UI. It has null padding
	uniqueIdentifierVR

	// sequenceVR is for VR: SQ
	sequenceVR

	// tagVR is for tags. Distinct from numberBinaryVR due to little endian byte ordering
	tagVR
)

// stringKind describes how a string VR's value field is split into components
// before character set decoding.
type stringKind int

const (
	// notString is for VRs whose value field is not character data
	notString stringKind = iota

	// singleValueString is for VRs holding exactly one string (ST, LT, UT)
	singleValueString

	// multiValueString is for VRs whose value field may hold multiple
	// backslash-delimited strings
	multiValueString

	// personNameString is for PN, which additionally splits component
	// groups on "="
	personNameString
)

// UndefinedLength as specified
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// VR models the DICOM Value representations (VR)
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
type VR struct {
	// Name represents the 2-character VR Code
	Name string

	kind vrType

	// longLength is true for VRs whose explicit-VR header carries a 2-byte
	// reserved field followed by a 32-bit length, and false for VRs with a
	// 16-bit length field.
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
	longLength bool

	// swapSize is the byte-swap group size used when converting value bytes
	// between big and little endian serializations. 1 means no swapping.
	swapSize int

	// stringKind is how the value field splits into strings, if it does
	stringKind stringKind

	// utf8Safe is true for string VRs restricted to the default repertoire,
	// whose bytes never need the character set decoder
	utf8Safe bool

	// maxLength is the maximum value field length in bytes, 0 if unbounded
	maxLength uint32
}

var vrLookupMap = map[string]*VR{}

func newVR(v VR) *VR {
	vr := &v
	vrLookupMap[vr.Name] = vr

	return vr
}

func lookupVRByName(name string) (*VR, error) {
	r, ok := vrLookupMap[name]
	if !ok {
		return nil, fmt.Errorf("unknown vr name: %q", name)
	}
	return r, nil
}

// VR list obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	// textual VRs
	CSVR = newVR(VR{Name: "CS", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 16})
	SHVR = newVR(VR{Name: "SH", kind: textVR, swapSize: 1, stringKind: multiValueString, maxLength: 16})
	LOVR = newVR(VR{Name: "LO", kind: textVR, swapSize: 1, stringKind: multiValueString, maxLength: 64})
	STVR = newVR(VR{Name: "ST", kind: textVR, swapSize: 1, stringKind: singleValueString, maxLength: 1024})
	LTVR = newVR(VR{Name: "LT", kind: textVR, swapSize: 1, stringKind: singleValueString, maxLength: 10240})
	ASVR = newVR(VR{Name: "AS", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 4})

	// person name
	PNVR = newVR(VR{Name: "PN", kind: textVR, swapSize: 1, stringKind: personNameString, maxLength: 324})

	// application entity
	AEVR = newVR(VR{Name: "AE", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 16})

	// dates/time VR
	DAVR = newVR(VR{Name: "DA", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 8})
	TMVR = newVR(VR{Name: "TM", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 14})
	DTVR = newVR(VR{Name: "DT", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 26})

	// textual numbers
	ISVR = newVR(VR{Name: "IS", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 12})
	DSVR = newVR(VR{Name: "DS", kind: textVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 16})

	// binary numbers
	SSVR = newVR(VR{Name: "SS", kind: numberBinaryVR, swapSize: 2})
	USVR = newVR(VR{Name: "US", kind: numberBinaryVR, swapSize: 2})
	SLVR = newVR(VR{Name: "SL", kind: numberBinaryVR, swapSize: 4})
	ULVR = newVR(VR{Name: "UL", kind: numberBinaryVR, swapSize: 4})
	SVVR = newVR(VR{Name: "SV", kind: numberBinaryVR, longLength: true, swapSize: 8})
	UVVR = newVR(VR{Name: "UV", kind: numberBinaryVR, longLength: true, swapSize: 8})
	FLVR = newVR(VR{Name: "FL", kind: numberBinaryVR, swapSize: 4})
	FDVR = newVR(VR{Name: "FD", kind: numberBinaryVR, swapSize: 8})

	// large binary sequences
	OBVR = newVR(VR{Name: "OB", kind: bulkDataVR, longLength: true, swapSize: 1})
	ODVR = newVR(VR{Name: "OD", kind: bulkDataVR, longLength: true, swapSize: 8})
	OLVR = newVR(VR{Name: "OL", kind: bulkDataVR, longLength: true, swapSize: 4})
	OVVR = newVR(VR{Name: "OV", kind: bulkDataVR, longLength: true, swapSize: 8})
	OWVR = newVR(VR{Name: "OW", kind: bulkDataVR, longLength: true, swapSize: 2})
	OFVR = newVR(VR{Name: "OF", kind: bulkDataVR, longLength: true, swapSize: 4})

	// unlimited char
	UCVR = newVR(VR{Name: "UC", kind: bulkDataVR, longLength: true, swapSize: 1, stringKind: multiValueString})

	// unknown
	UNVR = newVR(VR{Name: "UN", kind: bulkDataVR, longLength: true, swapSize: 1})

	// URL
	URVR = newVR(VR{Name: "UR", kind: bulkDataVR, longLength: true, swapSize: 1, stringKind: singleValueString, utf8Safe: true})

	// unlimited text
	UTVR = newVR(VR{Name: "UT", kind: bulkDataVR, longLength: true, swapSize: 1, stringKind: singleValueString})

	// attribute tag
	ATVR = newVR(VR{Name: "AT", kind: tagVR, swapSize: 2})

	// unique identifier
	UIVR = newVR(VR{Name: "UI", kind: uniqueIdentifierVR, swapSize: 1, stringKind: multiValueString, utf8Safe: true, maxLength: 64})

	// sequence
	SQVR = newVR(VR{Name: "SQ", kind: sequenceVR, longLength: true, swapSize: 1})
)

// isString reports whether the VR's value field holds character data.
func (vr *VR) isString() bool {
	return vr.stringKind != notString
}

// needsCharacterSetDecoding reports whether the VR's value bytes must be
// routed through the character set decoder before they are UTF-8 clean.
func (vr *VR) needsCharacterSetDecoding() bool {
	return vr.isString() && !vr.utf8Safe
}

func (vr *VR) String() string {
	return vr.Name
}

// swapBytes reverses the byte order of each size-byte group in place,
// converting between big and little endian serializations of the value
// field. A trailing group shorter than size is left untouched.
func swapBytes(data []byte, size int) {
	if size <= 1 {
		return
	}
	for i := 0; i+size <= len(data); i += size {
		for a, b := i, i+size-1; a < b; a, b = a+1, b-1 {
			data[a], data[b] = data[b], data[a]
		}
	}
}
