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
	"reflect"
	"testing"
)

func TestDataSetSortedTags(t *testing.T) {
	ds := NewDataSet()
	ds.Add(&DataElement{Tag: 0x00100010, VR: PNVR, ValueField: []byte("A")})
	ds.Add(&DataElement{Tag: 0x00080020, VR: DAVR, ValueField: []byte("20240101")})
	ds.Add(&DataElement{Tag: 0x00080050, VR: SHVR, ValueField: []byte("1234")})

	got := ds.SortedTags()
	want := []DataElementTag{0x00080020, 0x00080050, 0x00100010}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedTags() = %v, want %v", got, want)
	}
}

func TestDataSetGetString(t *testing.T) {
	ds := NewDataSet()
	ds.Add(&DataElement{Tag: 0x00080050, VR: SHVR, ValueField: []byte("1234 \x00")})

	got, ok := ds.GetString(0x00080050)
	if !ok {
		t.Fatal("GetString(0x00080050) not found")
	}
	if got != "1234" {
		t.Errorf("GetString(0x00080050) = %q, want %q", got, "1234")
	}

	if _, ok := ds.GetString(0x00080020); ok {
		t.Error("GetString of a missing tag should report not found")
	}
}

func TestDataSetGetUInt16(t *testing.T) {
	ds := NewDataSet()
	ds.Add(&DataElement{Tag: BitsAllocatedTag, VR: USVR, ValueField: []byte{0x10, 0x00}})

	got, ok := ds.GetUInt16(BitsAllocatedTag)
	if !ok {
		t.Fatal("GetUInt16(BitsAllocatedTag) not found")
	}
	if got != 16 {
		t.Errorf("GetUInt16(BitsAllocatedTag) = %d, want 16", got)
	}
}
