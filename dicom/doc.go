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

/*
Package dicom reads and writes the DICOM Part 10 file format as a stream of
Parts.

A Part is one structural event of a DICOM file: the preamble, the File Meta
Information, a data element header, a chunk of value bytes, the boundaries of
sequences and items, an encapsulated pixel data fragment, or the end of the
stream. Reading a file yields the same canonical Part stream on every
transfer syntax: string values are converted to UTF-8, big endian values to
little endian, and defined-length sequences to their delimited form.

PartReader is push based and resumable, so files can be processed with
bounded memory no matter their size:

	reader := dicom.NewPartReader()
	for {
		parts, err := reader.ReadParts()
		if err == dicom.ErrDataRequired {
			// write the next chunk of the file and try again
			continue
		}
		if err == io.EOF {
			break
		}
		...
	}

PartWriter performs the inverse conversion, and Builder materializes a Part
stream into a DataSet. ReadDataSet and WriteDataSet wrap the three for the
common case of whole files:

	dataSet, err := dicom.ReadDataSet(file)
*/
package dicom
