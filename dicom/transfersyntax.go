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
)

// list of transfer syntaxes obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_A
const (
	// ImplicitVRLittleEndianUID is the Implicit VR Little Endian UID
	ImplicitVRLittleEndianUID = "1.2.840.10008.1.2"
	// ExplicitVRLittleEndianUID is the Explicit VR Little Endian UID
	ExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1"
	// EncapsulatedUncompressedExplicitVRLittleEndianUID is the Encapsulated
	// Uncompressed Explicit VR Little Endian UID
	EncapsulatedUncompressedExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1.98"
	// DeflatedExplicitVRLittleEndianUID is the Deflated Explicit VR Little Endian UID
	DeflatedExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1.99"
	// ExplicitVRBigEndianUID is the (retired) Explicit VR Big Endian UID
	ExplicitVRBigEndianUID = "1.2.840.10008.1.2.2"
	// JPEGBaselineUID is the JPEG Baseline (Process 1) transfer syntax UID
	JPEGBaselineUID = "1.2.840.10008.1.2.4.50"
	// JPEGExtendedUID is the JPEG Extended (Process 2 & 4) transfer syntax UID
	JPEGExtendedUID = "1.2.840.10008.1.2.4.51"
	// JPEGLosslessUID is the JPEG Lossless, Non-Hierarchical (Process 14) UID
	JPEGLosslessUID = "1.2.840.10008.1.2.4.57"
	// JPEGLosslessSV1UID is the JPEG Lossless Selection Value 1 UID
	JPEGLosslessSV1UID = "1.2.840.10008.1.2.4.70"
	// JPEGLSLosslessUID is the JPEG-LS Lossless Image Compression UID
	JPEGLSLosslessUID = "1.2.840.10008.1.2.4.80"
	// JPEGLSLossyUID is the JPEG-LS Lossy (Near-Lossless) UID
	JPEGLSLossyUID = "1.2.840.10008.1.2.4.81"
	// JPEG2000LosslessOnlyUID is the JPEG 2000 (Lossless Only) UID
	JPEG2000LosslessOnlyUID = "1.2.840.10008.1.2.4.90"
	// JPEG2000UID is the JPEG 2000 UID
	JPEG2000UID = "1.2.840.10008.1.2.4.91"
	// HTJ2KLosslessUID is the High-Throughput JPEG 2000 (Lossless Only) UID
	HTJ2KLosslessUID = "1.2.840.10008.1.2.4.201"
	// HTJ2KLosslessRPCLUID is the High-Throughput JPEG 2000 with RPCL Options UID
	HTJ2KLosslessRPCLUID = "1.2.840.10008.1.2.4.202"
	// HTJ2KUID is the High-Throughput JPEG 2000 UID
	HTJ2KUID = "1.2.840.10008.1.2.4.203"
	// RLELosslessUID is the RLE Lossless UID
	RLELosslessUID = "1.2.840.10008.1.2.5"
)

// transferSyntax describes how data elements are serialized: the VR mode
// (implicit or explicit), the byte order, and whether the main data set is
// wrapped in a raw DEFLATE stream.
type transferSyntax struct {
	UID       string
	Implicit  bool
	ByteOrder binary.ByteOrder
	Deflated  bool
}

var (
	implicitVRLittleEndian         = &transferSyntax{ImplicitVRLittleEndianUID, true, binary.LittleEndian, false}
	explicitVRLittleEndian         = &transferSyntax{ExplicitVRLittleEndianUID, false, binary.LittleEndian, false}
	explicitVRBigEndian            = &transferSyntax{ExplicitVRBigEndianUID, false, binary.BigEndian, false}
	deflatedExplicitVRLittleEndian = &transferSyntax{DeflatedExplicitVRLittleEndianUID, false, binary.LittleEndian, true}
)

// transferSyntaxByUID holds every recognized transfer syntax. All the
// encapsulated (compressed pixel data) syntaxes use the Explicit VR Little
// Endian serialization for data elements, per PS3.5 A.4.
var transferSyntaxByUID = map[string]*transferSyntax{
	ImplicitVRLittleEndianUID:         implicitVRLittleEndian,
	ExplicitVRLittleEndianUID:         explicitVRLittleEndian,
	ExplicitVRBigEndianUID:            explicitVRBigEndian,
	DeflatedExplicitVRLittleEndianUID: deflatedExplicitVRLittleEndian,

	EncapsulatedUncompressedExplicitVRLittleEndianUID: {EncapsulatedUncompressedExplicitVRLittleEndianUID, false, binary.LittleEndian, false},
	JPEGBaselineUID:         {JPEGBaselineUID, false, binary.LittleEndian, false},
	JPEGExtendedUID:         {JPEGExtendedUID, false, binary.LittleEndian, false},
	JPEGLosslessUID:         {JPEGLosslessUID, false, binary.LittleEndian, false},
	JPEGLosslessSV1UID:      {JPEGLosslessSV1UID, false, binary.LittleEndian, false},
	JPEGLSLosslessUID:       {JPEGLSLosslessUID, false, binary.LittleEndian, false},
	JPEGLSLossyUID:          {JPEGLSLossyUID, false, binary.LittleEndian, false},
	JPEG2000LosslessOnlyUID: {JPEG2000LosslessOnlyUID, false, binary.LittleEndian, false},
	JPEG2000UID:             {JPEG2000UID, false, binary.LittleEndian, false},
	HTJ2KLosslessUID:        {HTJ2KLosslessUID, false, binary.LittleEndian, false},
	HTJ2KLosslessRPCLUID:    {HTJ2KLosslessRPCLUID, false, binary.LittleEndian, false},
	HTJ2KUID:                {HTJ2KUID, false, binary.LittleEndian, false},
	RLELosslessUID:          {RLELosslessUID, false, binary.LittleEndian, false},
}

func lookupTransferSyntax(uid string) (*transferSyntax, bool) {
	syntax, ok := transferSyntaxByUID[uid]
	return syntax, ok
}
