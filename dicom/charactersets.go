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
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// utf8CharacterSetTerm is the Specific Character Set defined term the read
// path normalizes every string to.
const utf8CharacterSetTerm = "ISO_IR 192"

// defaultCharacterRepertoire is used when no Specific Character Set is in
// scope. Windows1252 is a practical superset of the DICOM default repertoire.
var defaultCharacterRepertoire encoding.Encoding = charmap.Windows1252

// lookupLabelByTerm is a mapping of specific character set defined terms to golang charset labels.
// See link below for list of character set defined terms.
// http://dicom.nema.org/medical/dicom/current/output/chtml/part02/sect_D.6.2.html
var lookupLabelByTerm = map[string]string{
	"ISO_IR 6":   "us-ascii",
	"ISO_IR 100": "iso-ir-100",
	"ISO_IR 101": "iso-ir-101",
	"ISO_IR 109": "iso-ir-109",
	"ISO_IR 110": "iso-ir-110",
	"ISO_IR 144": "iso-ir-144",
	"ISO_IR 127": "iso-ir-127",
	"ISO_IR 126": "iso-ir-126",
	"ISO_IR 138": "iso-ir-138",
	"ISO_IR 148": "iso-ir-148",
	"ISO_IR 13":  "shift-jis",
	"ISO_IR 166": "tis-620",
	"ISO_IR 192": "utf-8",
	"GB18030":    "gb18030",
	"GBK":        "gbk",
	"ISO 2022 IR 6":   "us-ascii",
	"ISO 2022 IR 100": "iso-ir-100",
	"ISO 2022 IR 101": "iso-ir-101",
	"ISO 2022 IR 109": "iso-ir-109",
	"ISO 2022 IR 110": "iso-ir-110",
	"ISO 2022 IR 144": "iso-ir-144",
	"ISO 2022 IR 127": "iso-ir-127",
	"ISO 2022 IR 126": "iso-ir-126",
	"ISO 2022 IR 138": "iso-ir-138",
	"ISO 2022 IR 148": "iso-ir-148",
	"ISO 2022 IR 13":  "shift-jis",
	"ISO 2022 IR 166": "tis-620",
}

// lookupEncodingByTerm holds encodings that are addressed directly rather
// than through the WHATWG label index, mostly the ISO 2022 multi-byte sets.
var lookupEncodingByTerm = map[string]encoding.Encoding{
	"ISO 2022 IR 87":  japanese.ISO2022JP,
	"ISO 2022 IR 159": japanese.ISO2022JP,
	"ISO 2022 IR 149": korean.EUCKR,
	"ISO 2022 IR 58":  simplifiedchinese.GB18030,
	"GB18030":         simplifiedchinese.GB18030,
	"ISO_IR 192":      unicode.UTF8,
}

func lookupEncoding(term string) (encoding.Encoding, error) {
	if coding, ok := lookupEncodingByTerm[term]; ok {
		return coding, nil
	}

	label, ok := lookupLabelByTerm[term]
	if !ok {
		return nil, fmt.Errorf("specific character set defined term not found: %q", term)
	}

	coding, _ := charset.Lookup(label)
	if coding == nil {
		return nil, fmt.Errorf("missing encoding for label %q", label)
	}
	return coding, nil
}

// parseSpecificCharacterSet resolves a Specific Character Set (0008,0005)
// value to an encoding. Multi-valued declarations select ISO 2022 code
// extensions: the decoder for the first extension set is used for the whole
// value, which matches how single-stream decoders handle these files.
func parseSpecificCharacterSet(value []byte) (encoding.Encoding, error) {
	terms := strings.Split(string(value), "\\")

	// An empty first value means the default repertoire with extensions
	// following, e.g. "\ISO 2022 IR 87".
	var term string
	for _, t := range terms {
		t = strings.TrimSpace(strings.Trim(t, "\x00"))
		if t != "" {
			term = t
			break
		}
	}
	if term == "" {
		return nil, nil
	}

	return lookupEncoding(term)
}

// decodeStringValue converts a string value field to UTF-8, splitting it into
// components per the VR's string kind so that delimiter bytes are never fed
// to the decoder.
func decodeStringValue(value []byte, coding encoding.Encoding, kind stringKind) ([]byte, error) {
	if coding == nil || coding == unicode.UTF8 {
		return value, nil
	}

	switch kind {
	case singleValueString:
		return decodeComponent(value, coding)
	case multiValueString:
		return decodeDelimited(value, coding, '\\')
	case personNameString:
		// component groups (=) of multi-valued (\) names
		groups := bytes.Split(value, []byte{'='})
		out := make([][]byte, len(groups))
		for i, g := range groups {
			decoded, err := decodeDelimited(g, coding, '\\')
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return bytes.Join(out, []byte{'='}), nil
	}

	return decodeComponent(value, coding)
}

func decodeDelimited(value []byte, coding encoding.Encoding, delim byte) ([]byte, error) {
	parts := bytes.Split(value, []byte{delim})
	out := make([][]byte, len(parts))
	for i, p := range parts {
		decoded, err := decodeComponent(p, coding)
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return bytes.Join(out, []byte{delim}), nil
}

func decodeComponent(value []byte, coding encoding.Encoding) ([]byte, error) {
	decoded, err := coding.NewDecoder().Bytes(value)
	if err != nil {
		return nil, fmt.Errorf("decoding string value: %v", err)
	}
	return decoded, nil
}
