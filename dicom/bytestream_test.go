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
	"compress/flate"
	"testing"
)

func TestByteStream_ReadAcrossChunks(t *testing.T) {
	bs := newByteStream()
	for _, chunk := range [][]byte{{1, 2}, {3}, {4, 5, 6}} {
		if err := bs.write(chunk, false); err != nil {
			t.Fatalf("unexpected error writing: %v", err)
		}
	}

	got, err := bs.read(4)
	if err != nil {
		t.Fatalf("unexpected error reading: %v", err)
	}
	if want := []byte{1, 2, 3, 4}; !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if bs.bytesRead != 4 {
		t.Errorf("got bytesRead %d, want 4", bs.bytesRead)
	}

	if _, err := bs.read(3); err != ErrDataRequired {
		t.Fatalf("got error %v, want ErrDataRequired", err)
	}
	if got, err := bs.read(2); err != nil || !bytes.Equal(got, []byte{5, 6}) {
		t.Fatalf("got %v, %v, want [5 6], nil", got, err)
	}
}

func TestByteStream_PeekDoesNotConsume(t *testing.T) {
	bs := newByteStream()
	if err := bs.write([]byte{1, 2, 3}, false); err != nil {
		t.Fatalf("unexpected error writing: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := bs.peek(3)
		if err != nil {
			t.Fatalf("unexpected error peeking: %v", err)
		}
		if want := []byte{1, 2, 3}; !bytes.Equal(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if bs.bytesRead != 0 {
		t.Errorf("got bytesRead %d, want 0", bs.bytesRead)
	}
}

func TestByteStream_DataEnd(t *testing.T) {
	bs := newByteStream()
	if err := bs.write([]byte{1, 2}, true); err != nil {
		t.Fatalf("unexpected error writing: %v", err)
	}

	if _, err := bs.read(3); err != errDataEnd {
		t.Fatalf("got error %v, want errDataEnd", err)
	}
	if _, err := bs.read(2); err != nil {
		t.Fatalf("unexpected error reading: %v", err)
	}
	if !bs.isFullyConsumed() {
		t.Error("stream should be fully consumed")
	}
}

func TestByteStream_WriteAfterFinal(t *testing.T) {
	bs := newByteStream()
	if err := bs.write(nil, true); err != nil {
		t.Fatalf("unexpected error on final write: %v", err)
	}
	err := bs.write([]byte{1}, false)
	if !IsKind(err, ErrorWriteAfterCompletion) {
		t.Fatalf("got error %v, want kind %v", err, ErrorWriteAfterCompletion)
	}
}

func TestByteStream_InflateResumes(t *testing.T) {
	plain := bytes.Repeat([]byte("part 10 byte stream "), 400)
	var compressed bytes.Buffer
	flater, err := flate.NewWriter(&compressed, 6)
	if err != nil {
		t.Fatalf("unexpected error creating flate writer: %v", err)
	}
	if _, err := flater.Write(plain); err != nil {
		t.Fatalf("unexpected error compressing: %v", err)
	}
	if err := flater.Close(); err != nil {
		t.Fatalf("unexpected error closing flate writer: %v", err)
	}

	bs := newByteStream()
	bs.startInflate()

	// write the compressed bytes one at a time, draining whenever output is
	// available, so the inflater repeatedly starves and resumes
	var got []byte
	data := compressed.Bytes()
	for i := 0; i < len(data); i++ {
		if err := bs.write(data[i:i+1], i == len(data)-1); err != nil {
			t.Fatalf("unexpected error writing: %v", err)
		}
		for {
			out, err := bs.read(1)
			if err == ErrDataRequired || err == errDataEnd {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error reading: %v", err)
			}
			got = append(got, out...)
		}
	}

	if !bytes.Equal(got, plain) {
		t.Fatalf("inflated %d bytes, want %d; contents differ", len(got), len(plain))
	}
	if !bs.isFullyConsumed() {
		t.Error("stream should be fully consumed")
	}
}

func TestByteStream_InflateEnsure(t *testing.T) {
	plain := []byte("0123456789abcdef")
	var compressed bytes.Buffer
	flater, err := flate.NewWriter(&compressed, 6)
	if err != nil {
		t.Fatalf("unexpected error creating flate writer: %v", err)
	}
	if _, err := flater.Write(plain); err != nil {
		t.Fatalf("unexpected error compressing: %v", err)
	}
	if err := flater.Close(); err != nil {
		t.Fatalf("unexpected error closing flate writer: %v", err)
	}

	bs := newByteStream()
	bs.startInflate()
	if err := bs.write(compressed.Bytes(), true); err != nil {
		t.Fatalf("unexpected error writing: %v", err)
	}

	got, err := bs.peek(len(plain))
	if err != nil {
		t.Fatalf("unexpected error peeking: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("got %q, want %q", got, plain)
	}
	if _, err := bs.read(len(plain)); err != nil {
		t.Fatalf("unexpected error reading: %v", err)
	}
	if _, err := bs.read(1); err != errDataEnd {
		t.Fatalf("got error %v, want errDataEnd", err)
	}
}
