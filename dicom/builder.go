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

type builderFrameKind int

const (
	frameDataSet builderFrameKind = iota
	frameSequence
	framePixelData
)

type builderFrame struct {
	kind    builderFrameKind
	dataSet *DataSet     // frameDataSet
	element *DataElement // frameSequence and framePixelData
}

// Builder materializes a stream of Parts into an in-memory DataSet. File
// Meta Information elements are merged into the resulting data set.
type Builder struct {
	root  *DataSet
	stack []builderFrame

	pending    *DataElement
	pendingBuf []byte
	inFragment bool

	complete bool
}

// NewBuilder returns a Builder with an empty root data set.
func NewBuilder() *Builder {
	root := NewDataSet()
	return &Builder{
		root:  root,
		stack: []builderFrame{{kind: frameDataSet, dataSet: root}},
	}
}

// Complete reports whether the End Part has been received.
func (b *Builder) Complete() bool {
	return b.complete
}

// DataSet returns the materialized data set. It is only fully populated once
// Complete reports true.
func (b *Builder) DataSet() *DataSet {
	return b.root
}

func (b *Builder) top() *builderFrame {
	return &b.stack[len(b.stack)-1]
}

// AddPart feeds the next Part into the builder. Parts must arrive in the
// order PartReader emits them.
func (b *Builder) AddPart(part Part) error {
	if b.complete {
		return newError(ErrorPartStreamInvalid, 0, "part received after the end of the part stream")
	}

	switch p := part.(type) {
	case *FilePreambleAndPrefixPart:
		// the preamble carries no data set content

	case *FileMetaInformationPart:
		for tag, element := range p.DataSet.Elements {
			b.root.Elements[tag] = element
		}

	case *DataElementHeaderPart:
		if b.pending != nil {
			return newTagError(ErrorPartStreamInvalid, 0, p.Tag, "data element header while a value is incomplete")
		}
		if b.top().kind != frameDataSet {
			return newTagError(ErrorPartStreamInvalid, 0, p.Tag, "data element header inside a sequence")
		}
		b.pending = &DataElement{Tag: p.Tag, VR: p.VR, ValueLength: p.Length}
		b.pendingBuf = []byte{}
		b.inFragment = false

	case *DataElementValueBytesPart:
		if b.pending == nil {
			return newError(ErrorPartStreamInvalid, 0, "value bytes with no open data element")
		}
		b.pendingBuf = append(b.pendingBuf, p.Data...)
		if p.BytesRemaining == 0 {
			b.finishPending()
		}

	case *SequenceStartPart:
		if b.pending != nil {
			return newTagError(ErrorPartStreamInvalid, 0, p.Tag, "sequence start while a value is incomplete")
		}
		if b.top().kind != frameDataSet {
			return newTagError(ErrorPartStreamInvalid, 0, p.Tag, "sequence start directly inside a sequence")
		}
		if p.VR == OBVR || p.VR == OWVR {
			element := &DataElement{Tag: p.Tag, VR: p.VR, ValueField: [][]byte{}, ValueLength: UndefinedLength}
			b.stack = append(b.stack, builderFrame{kind: framePixelData, element: element})
		} else {
			element := &DataElement{Tag: p.Tag, VR: SQVR, ValueField: &Sequence{}, ValueLength: UndefinedLength}
			b.stack = append(b.stack, builderFrame{kind: frameSequence, element: element})
		}

	case *SequenceItemStartPart:
		if b.pending != nil || b.top().kind != frameSequence {
			return newError(ErrorPartStreamInvalid, 0, "item start outside of a sequence")
		}
		item := NewDataSet()
		b.top().element.ValueField.(*Sequence).append(item)
		b.stack = append(b.stack, builderFrame{kind: frameDataSet, dataSet: item})

	case *SequenceItemDelimiterPart:
		if b.pending != nil || len(b.stack) < 2 || b.top().kind != frameDataSet {
			return newError(ErrorPartStreamInvalid, 0, "item delimiter with no open item")
		}
		b.stack = b.stack[:len(b.stack)-1]

	case *SequenceDelimiterPart:
		if b.pending != nil || len(b.stack) < 2 {
			return newError(ErrorPartStreamInvalid, 0, "sequence delimiter with no open sequence")
		}
		top := b.top()
		if top.kind != frameSequence && top.kind != framePixelData {
			return newError(ErrorPartStreamInvalid, 0, "sequence delimiter with no open sequence")
		}
		element := top.element
		b.stack = b.stack[:len(b.stack)-1]
		b.top().dataSet.Add(element)

	case *PixelDataItemPart:
		if b.pending != nil || b.top().kind != framePixelData {
			return newError(ErrorPartStreamInvalid, 0, "pixel data item outside of encapsulated pixel data")
		}
		// a value bytes part follows every fragment, even an empty one
		b.pending = b.top().element
		b.pendingBuf = make([]byte, 0, p.Length)
		b.inFragment = true

	case *EndPart:
		if b.pending != nil || len(b.stack) != 1 {
			return newError(ErrorPartStreamInvalid, 0, "end part before the data set is complete")
		}
		b.complete = true
	}

	return nil
}

// finishPending stores the accumulated value of the open data element or
// fragment.
func (b *Builder) finishPending() {
	if b.inFragment {
		element := b.pending
		element.ValueField = append(element.ValueField.([][]byte), b.pendingBuf)
	} else {
		b.pending.ValueField = b.pendingBuf
		b.top().dataSet.Add(b.pending)
	}
	b.pending = nil
	b.pendingBuf = nil
	b.inFragment = false
}

// ForceEnd completes the builder early. A partially received value is kept
// with the bytes that arrived, and open sequences and items are closed as if
// their delimiters had been received.
func (b *Builder) ForceEnd() {
	if b.complete {
		return
	}
	if b.pending != nil {
		b.finishPending()
	}
	for len(b.stack) > 1 {
		top := b.top()
		b.stack = b.stack[:len(b.stack)-1]
		if top.kind == frameSequence || top.kind == framePixelData {
			b.top().dataSet.Add(top.element)
		}
	}
	b.complete = true
}
