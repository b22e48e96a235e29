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

	"golang.org/x/text/encoding"
)

type locationKind int

const (
	locationRoot locationKind = iota
	locationSequence
	locationItem
	locationPixelDataSequence
)

// clarifyingState holds previously seen sibling values that are needed to
// resolve ambiguous VRs and to decode strings. It is scoped per item: items
// inherit the enclosing scope's state when they open and may locally override
// it.
type clarifyingState struct {
	charset               encoding.Encoding // nil means the default repertoire
	bitsAllocated         int               // -1 when unset
	pixelRepresentation   int
	waveformBitsStored    int
	waveformBitsAllocated int
	privateCreators       map[DataElementTag]string
}

func newClarifyingState() clarifyingState {
	return clarifyingState{
		bitsAllocated:         -1,
		pixelRepresentation:   -1,
		waveformBitsStored:    -1,
		waveformBitsAllocated: -1,
	}
}

func (c clarifyingState) clone() clarifyingState {
	out := c
	if c.privateCreators != nil {
		out.privateCreators = make(map[DataElementTag]string, len(c.privateCreators))
		for k, v := range c.privateCreators {
			out.privateCreators[k] = v
		}
	}
	return out
}

// locationEntry is one level of the nesting stack.
type locationEntry struct {
	kind locationKind

	tag DataElementTag // opening tag for sequence entries

	// implicitForced marks a sequence read with an explicit VR of UN and
	// undefined length: per CP-246 its contents carry no VRs and are parsed
	// as implicit VR little endian.
	implicitForced bool

	// endsAt is the absolute end offset of a defined-length container. The
	// matching delimiter Part is synthesized when the read cursor reaches it.
	endsAt uint64
	hasEnd bool

	itemCount int
	pixelVR   *VR

	// clarifying is only populated for root and item entries
	clarifying clarifyingState
}

// location tracks the current nesting within a data set during reading. The
// stack is never empty: the root entry is permanent.
type location struct {
	entries  []locationEntry
	maxDepth int
}

func newLocation(maxDepth int) *location {
	return &location{
		entries:  []locationEntry{{kind: locationRoot, clarifying: newClarifyingState()}},
		maxDepth: maxDepth,
	}
}

func (l *location) top() *locationEntry {
	return &l.entries[len(l.entries)-1]
}

func (l *location) depth() int {
	return len(l.entries) - 1
}

// sequenceDepth counts the open sequences, excluding items.
func (l *location) sequenceDepth() int {
	depth := 0
	for _, entry := range l.entries {
		if entry.kind == locationSequence || entry.kind == locationPixelDataSequence {
			depth++
		}
	}
	return depth
}

// nextDelimiterPart synthesizes the delimiter for a defined-length container
// whose end offset the read cursor has reached. It is polled before every
// new header read; repeated polling drains multiple containers ending at the
// same offset.
func (l *location) nextDelimiterPart(bytesRead uint64) (Part, bool) {
	top := l.top()
	if !top.hasEnd || bytesRead < top.endsAt {
		return nil, false
	}

	switch top.kind {
	case locationSequence:
		tag := top.tag
		l.entries = l.entries[:len(l.entries)-1]
		return &SequenceDelimiterPart{Tag: tag}, true
	case locationItem:
		l.entries = l.entries[:len(l.entries)-1]
		return &SequenceItemDelimiterPart{}, true
	}
	return nil, false
}

// unwind closes every open container innermost first, returning the
// synthesized delimiter Parts. It is used when the input ends at a data
// element boundary with sequences or items still open.
func (l *location) unwind() []Part {
	var parts []Part
	for l.depth() > 0 {
		switch l.top().kind {
		case locationItem:
			parts = append(parts, &SequenceItemDelimiterPart{})
		case locationSequence, locationPixelDataSequence:
			parts = append(parts, &SequenceDelimiterPart{Tag: l.top().tag})
		}
		l.entries = l.entries[:len(l.entries)-1]
	}
	return parts
}

// startSequence opens a sequence. endsAt carries the absolute end offset for
// defined-length sequences; hasEnd is false for undefined length.
func (l *location) startSequence(tag DataElementTag, forcedImplicit bool, endsAt uint64, hasEnd bool, offset uint64) error {
	top := l.top().kind
	if top != locationRoot && top != locationItem {
		return newTagError(ErrorDataInvalid, offset, tag, "sequence opened outside of a data set")
	}
	if l.sequenceDepth() >= l.maxDepth {
		return newTagError(ErrorMaximumExceeded, offset, tag, "maximum sequence depth of %d exceeded", l.maxDepth)
	}

	l.entries = append(l.entries, locationEntry{
		kind:           locationSequence,
		tag:            tag,
		implicitForced: forcedImplicit,
		endsAt:         endsAt,
		hasEnd:         hasEnd,
	})
	return nil
}

// endSequence closes the current sequence. It reports false when no sequence
// is open, which callers treat leniently (rogue sequence delimiters occur in
// real-world data).
func (l *location) endSequence() (DataElementTag, bool) {
	top := l.top()
	if top.kind != locationSequence && top.kind != locationPixelDataSequence {
		return 0, false
	}
	tag := top.tag
	l.entries = l.entries[:len(l.entries)-1]
	return tag, true
}

// startItem opens an item under the current sequence, inheriting the
// clarifying state of the enclosing scope.
func (l *location) startItem(endsAt uint64, hasEnd bool, offset uint64) error {
	top := l.top()
	if top.kind != locationSequence {
		return newError(ErrorDataInvalid, offset, "item opened outside of a sequence")
	}
	top.itemCount++

	l.entries = append(l.entries, locationEntry{
		kind:       locationItem,
		endsAt:     endsAt,
		hasEnd:     hasEnd,
		clarifying: l.clarifyingScope().clone(),
	})
	return nil
}

// endItem closes the current item. Unlike a rogue sequence delimiter, an item
// delimiter with no open item is a data error.
func (l *location) endItem(offset uint64) error {
	if l.top().kind != locationItem {
		return newError(ErrorDataInvalid, offset, "item delimiter with no open item")
	}
	l.entries = l.entries[:len(l.entries)-1]
	return nil
}

// startPixelDataSequence opens an encapsulated pixel data sequence.
func (l *location) startPixelDataSequence(tag DataElementTag, vr *VR, offset uint64) error {
	top := l.top().kind
	if top != locationRoot && top != locationItem {
		return newTagError(ErrorDataInvalid, offset, tag, "encapsulated pixel data outside of a data set")
	}
	if l.sequenceDepth() >= l.maxDepth {
		return newTagError(ErrorMaximumExceeded, offset, tag, "maximum sequence depth of %d exceeded", l.maxDepth)
	}

	l.entries = append(l.entries, locationEntry{
		kind:    locationPixelDataSequence,
		tag:     tag,
		pixelVR: vr,
	})
	return nil
}

// inPixelDataSequence reports whether the innermost entry is an encapsulated
// pixel data sequence, and its pixel VR.
func (l *location) inPixelDataSequence() (*VR, bool) {
	top := l.top()
	if top.kind != locationPixelDataSequence {
		return nil, false
	}
	return top.pixelVR, true
}

// nextPixelDataItemIndex returns the ordinal of the next encapsulated
// fragment.
func (l *location) nextPixelDataItemIndex() int {
	top := l.top()
	index := top.itemCount
	top.itemCount++
	return index
}

// forcedImplicit reports whether the current position lies inside a CP-246
// sequence, whose contents are parsed as implicit VR little endian.
func (l *location) forcedImplicit() bool {
	for i := len(l.entries) - 1; i > 0; i-- {
		if l.entries[i].kind == locationSequence && l.entries[i].implicitForced {
			return true
		}
	}
	return false
}

// clarifyingScope returns the innermost clarifying state, which belongs to
// either the innermost open item or the root.
func (l *location) clarifyingScope() *clarifyingState {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].kind == locationItem || l.entries[i].kind == locationRoot {
			return &l.entries[i].clarifying
		}
	}
	// the root entry is permanent
	panic("dicom: location stack has no root entry")
}

// activeEncoding is the character set decoder for string values at the
// current position.
func (l *location) activeEncoding() encoding.Encoding {
	if cs := l.clarifyingScope().charset; cs != nil {
		return cs
	}
	return defaultCharacterRepertoire
}

// isClarifyingTag reports whether a data element's value must be captured to
// interpret later siblings.
func (l *location) isClarifyingTag(tag DataElementTag) bool {
	switch tag {
	case SpecificCharacterSetTag, BitsAllocatedTag, PixelRepresentationTag,
		WaveformBitsStoredTag, WaveformBitsAllocatedTag:
		return true
	}
	return tag.IsPrivateCreator()
}

// updateClarifying records a clarifying data element's value. The value bytes
// are already normalized to little endian. For Specific Character Set the
// returned bytes are the canonical UTF-8 marker, since all string data is
// normalized to UTF-8 by the read path; for all other tags the bytes are
// returned unchanged.
func (l *location) updateClarifying(tag DataElementTag, value []byte, offset uint64) ([]byte, error) {
	scope := l.clarifyingScope()

	switch tag {
	case SpecificCharacterSetTag:
		coding, err := parseSpecificCharacterSet(value)
		if err != nil {
			return nil, newTagError(ErrorSpecificCharacterSetInvalid, offset, tag, "%v", err)
		}
		scope.charset = coding
		return []byte(utf8CharacterSetTerm), nil

	case BitsAllocatedTag:
		if v, ok := uint16Value(value); ok {
			scope.bitsAllocated = int(v)
		}
	case PixelRepresentationTag:
		if v, ok := uint16Value(value); ok {
			scope.pixelRepresentation = int(v)
		}
	case WaveformBitsStoredTag:
		if v, ok := uint16Value(value); ok {
			scope.waveformBitsStored = int(v)
		}
	case WaveformBitsAllocatedTag:
		if v, ok := uint16Value(value); ok {
			scope.waveformBitsAllocated = int(v)
		}

	default:
		if tag.IsPrivateCreator() {
			if scope.privateCreators == nil {
				scope.privateCreators = map[DataElementTag]string{}
			}
			scope.privateCreators[tag] = trimPadding(string(value))
		}
	}

	return value, nil
}

// privateCreator resolves the private creator name reserving the block a
// private data element belongs to.
func (l *location) privateCreator(tag DataElementTag) (string, bool) {
	if !tag.IsPrivate() || tag.IsPrivateCreator() {
		return "", false
	}
	creatorTag := tagFromGroupElement(tag.GroupNumber(), tag.ElementNumber()>>8)
	creator, ok := l.clarifyingScope().privateCreators[creatorTag]
	return creator, ok
}

// inferVRForTag resolves the concrete VR for a tag read without one, i.e.
// under an implicit VR transfer syntax or within a CP-246 sequence.
func (l *location) inferVRForTag(tag DataElementTag) *VR {
	scope := l.clarifyingScope()

	switch tag {
	case PixelDataTag:
		// Pixel Data under an implicit VR transfer syntax is always OW
		return OWVR

	case SmallestValidPixelValueTag, LargestValidPixelValueTag,
		SmallestImagePixelValueTag, LargestImagePixelValueTag,
		SmallestPixelValueInSeriesTag, LargestPixelValueInSeriesTag,
		SmallestImagePixelValueInPlaneTag, LargestImagePixelValueInPlaneTag,
		PixelPaddingValueTag, PixelPaddingRangeLimitTag:
		if scope.pixelRepresentation == 1 {
			return SSVR
		}
		return USVR

	case 0x00281101, 0x00281102, 0x00281103, 0x00283002:
		// LUT descriptors: the first value can exceed 16 bits signed, so US
		// unless Pixel Representation says otherwise
		if scope.pixelRepresentation == 1 {
			return SSVR
		}
		return USVR

	case WaveformDataTag, WaveformPaddingValueTag:
		if scope.waveformBitsAllocated == 8 {
			return OBVR
		}
		return OWVR

	case ChannelMinimumValueTag, ChannelMaximumValueTag:
		if scope.waveformBitsStored == 8 {
			return OBVR
		}
		return OWVR
	}

	if tag.IsPrivate() && !tag.IsPrivateCreator() {
		// resolving private VRs would need the creator's private dictionary
		return UNVR
	}
	if (uint32(tag) & 0xFF00FFFF) == uint32(OverlayDataTag) {
		return OWVR
	}

	return tag.DictionaryVR()
}

func uint16Value(value []byte) (uint16, bool) {
	if len(value) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(value), true
}
