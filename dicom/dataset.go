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
	"fmt"
	"sort"
	"strings"
)

// DataSet models a DICOM data set as a collection of data elements keyed by
// tag. String values held in a DataSet are always UTF-8, regardless of the
// Specific Character Set the source bytes declared.
type DataSet struct {
	// Elements is a map of tags to data elements
	Elements map[DataElementTag]*DataElement
}

// NewDataSet returns an empty DataSet.
func NewDataSet() *DataSet {
	return &DataSet{Elements: map[DataElementTag]*DataElement{}}
}

// DataElement models a DICOM data element.
type DataElement struct {
	Tag DataElementTag

	VR *VR

	// ValueField holds the element's value, one of:
	// []byte      raw value bytes, little endian, strings as UTF-8
	// *Sequence   for SQ elements
	// [][]byte    encapsulated pixel data fragments
	ValueField interface{}

	// ValueLength is the length of the value as read from the stream. It may
	// be UndefinedLength; len of the value field is then the materialized
	// size.
	ValueLength uint32
}

// Sequence models an ordered series of items.
type Sequence struct {
	Items []*DataSet
}

func (s *Sequence) append(item *DataSet) {
	s.Items = append(s.Items, item)
}

// Len returns the number of data elements in the DataSet.
func (ds *DataSet) Len() int {
	return len(ds.Elements)
}

// Get returns the data element with the given tag, or nil.
func (ds *DataSet) Get(tag DataElementTag) *DataElement {
	return ds.Elements[tag]
}

// Add inserts a data element, replacing any previous element with the same
// tag.
func (ds *DataSet) Add(element *DataElement) {
	ds.Elements[element.Tag] = element
}

// SortedTags returns the tags in the DataSet in ascending order.
func (ds *DataSet) SortedTags() []DataElementTag {
	tags := make([]DataElementTag, 0, len(ds.Elements))
	for tag := range ds.Elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// SortedElements returns the data elements in the DataSet in ascending tag
// order.
func (ds *DataSet) SortedElements() []*DataElement {
	tags := ds.SortedTags()
	elements := make([]*DataElement, len(tags))
	for i, tag := range tags {
		elements[i] = ds.Elements[tag]
	}
	return elements
}

// GetString returns the value of a string element with trailing padding
// removed. It reports false when the element is absent or not a string.
func (ds *DataSet) GetString(tag DataElementTag) (string, bool) {
	element := ds.Get(tag)
	if element == nil || element.VR == nil || !element.VR.isString() {
		return "", false
	}
	value, ok := element.ValueField.([]byte)
	if !ok {
		return "", false
	}
	return trimPadding(string(value)), true
}

// GetUInt16 returns the first value of a US element. It reports false when
// the element is absent or too short.
func (ds *DataSet) GetUInt16(tag DataElementTag) (uint16, bool) {
	element := ds.Get(tag)
	if element == nil {
		return 0, false
	}
	value, ok := element.ValueField.([]byte)
	if !ok || len(value) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(value), true
}

// transferSyntaxUID returns the Transfer Syntax UID element's value, if
// present.
func (ds *DataSet) transferSyntaxUID() (string, bool) {
	return ds.GetString(TransferSyntaxUIDTag)
}

func (ds *DataSet) String() string {
	var b strings.Builder
	ds.writeIndented(&b, 0)
	return b.String()
}

func (ds *DataSet) writeIndented(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, element := range ds.SortedElements() {
		fmt.Fprintf(b, "%s%s\n", indent, element)
		if seq, ok := element.ValueField.(*Sequence); ok {
			for _, item := range seq.Items {
				fmt.Fprintf(b, "%s  item:\n", indent)
				item.writeIndented(b, depth+2)
			}
		}
	}
}

func (e *DataElement) String() string {
	name := e.Tag.DictionaryName()
	vrName := "??"
	if e.VR != nil {
		vrName = e.VR.Name
	}

	switch value := e.ValueField.(type) {
	case *Sequence:
		return fmt.Sprintf("%s %s %s: %d items", e.Tag, vrName, name, len(value.Items))
	case [][]byte:
		return fmt.Sprintf("%s %s %s: %d fragments", e.Tag, vrName, name, len(value))
	case []byte:
		if e.VR != nil && e.VR.isString() {
			return fmt.Sprintf("%s %s %s: %q", e.Tag, vrName, name, trimPadding(string(value)))
		}
		return fmt.Sprintf("%s %s %s: %d bytes", e.Tag, vrName, name, len(value))
	}
	return fmt.Sprintf("%s %s %s", e.Tag, vrName, name)
}

// trimPadding removes the trailing space and NUL padding DICOM permits on
// string values.
func trimPadding(s string) string {
	return strings.TrimRight(s, " \x00")
}
