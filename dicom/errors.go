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
	"errors"
	"fmt"
)

// ErrDataRequired is returned by PartReader and the underlying byte stream
// when more input bytes are needed to make progress. It is a backpressure
// signal, not a failure: write more bytes and call again.
var ErrDataRequired = errors.New("dicom: more data required")

// errDataEnd is the internal signal that the stream was marked final but did
// not hold enough bytes for the requested read. The reader wraps it into an
// *Error with kind ErrorDataEndedUnexpectedly and positional context.
var errDataEnd = errors.New("dicom: data ended")

// ErrorKind classifies terminal errors raised by the codec.
type ErrorKind int

const (
	// ErrorDataEndedUnexpectedly means the final bytes arrived but were
	// insufficient to complete the structure being read.
	ErrorDataEndedUnexpectedly ErrorKind = iota

	// ErrorDataInvalid means the input bytes are structurally wrong.
	ErrorDataInvalid

	// ErrorMaximumExceeded means a configured safety limit was hit.
	ErrorMaximumExceeded

	// ErrorTransferSyntaxNotSupported means the transfer syntax UID is not
	// recognized.
	ErrorTransferSyntaxNotSupported

	// ErrorSpecificCharacterSetInvalid means the Specific Character Set
	// declaration could not be parsed.
	ErrorSpecificCharacterSetInvalid

	// ErrorPartStreamInvalid means a Part arrived in an illegal position
	// relative to the current nesting. This indicates an integration error,
	// not malformed file data.
	ErrorPartStreamInvalid

	// ErrorWriteAfterCompletion means bytes or Parts were supplied after the
	// stream was finalized.
	ErrorWriteAfterCompletion
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorDataEndedUnexpectedly:
		return "data ended unexpectedly"
	case ErrorDataInvalid:
		return "data invalid"
	case ErrorMaximumExceeded:
		return "maximum exceeded"
	case ErrorTransferSyntaxNotSupported:
		return "transfer syntax not supported"
	case ErrorSpecificCharacterSetInvalid:
		return "specific character set invalid"
	case ErrorPartStreamInvalid:
		return "part stream invalid"
	case ErrorWriteAfterCompletion:
		return "write after completion"
	}
	return "unknown error"
}

// Error is a terminal codec error. It carries the byte offset at which the
// error was detected and, where applicable, the data element tag involved.
type Error struct {
	Kind   ErrorKind
	Offset uint64
	Tag    DataElementTag
	HasTag bool

	msg string
}

func (e *Error) Error() string {
	s := fmt.Sprintf("dicom: %v: %v", e.Kind, e.msg)
	if e.HasTag {
		name := e.Tag.DictionaryName()
		if name != "" {
			s += fmt.Sprintf(" [tag %v %v]", e.Tag, name)
		} else {
			s += fmt.Sprintf(" [tag %v]", e.Tag)
		}
	}
	return s + fmt.Sprintf(" [offset %v]", e.Offset)
}

func newError(kind ErrorKind, offset uint64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, msg: fmt.Sprintf(format, args...)}
}

func newTagError(kind ErrorKind, offset uint64, tag DataElementTag, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, Tag: tag, HasTag: true, msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a codec *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
