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
	"compress/flate"
	"errors"
	"io"
)

// inflateWindowSize bounds how much decompressed output is materialized per
// request beyond what the caller asked for, capping memory use against
// hostile deflate payloads.
const inflateWindowSize = 64 * 1024

// errInflateStarved is returned by inflateSource when the compressed input is
// exhausted but the stream has not been marked final.
var errInflateStarved = errors.New("dicom: inflate input exhausted")

// byteStream accumulates incoming byte chunks and serves exact-size read and
// peek requests against them. Reads that cannot be satisfied yet fail with
// ErrDataRequired until more bytes are written; once the stream is marked
// final they fail with errDataEnd instead.
//
// After startInflate is called, all buffered and future written bytes are
// treated as a raw DEFLATE stream, and reads are served from its inflated
// output.
type byteStream struct {
	chunks    [][]byte
	head      int // read offset into chunks[0]
	buffered  int // unread bytes across chunks
	bytesRead uint64
	writeDone bool

	inflating      bool
	compressed     []byte // compressed input, retained for inflater rebuilds
	inflater       io.ReadCloser
	inflaterValid  bool
	inflateStalled bool  // last attempt starved; wait for more input
	inflatedTotal  int64 // decompressed bytes delivered into chunks so far
	inflateDone    bool
}

// inflateSource feeds the flate reader from the stream's compressed input.
type inflateSource struct {
	bs  *byteStream
	pos int
}

func (s *inflateSource) Read(p []byte) (int, error) {
	if s.pos < len(s.bs.compressed) {
		n := copy(p, s.bs.compressed[s.pos:])
		s.pos += n
		return n, nil
	}
	if s.bs.writeDone {
		return 0, io.EOF
	}
	return 0, errInflateStarved
}

func newByteStream() *byteStream {
	return &byteStream{}
}

// write appends a chunk of input. The stream takes ownership of the slice.
// Marking the stream final with no chunk is allowed; writing anything after
// the stream was marked final is not.
func (bs *byteStream) write(chunk []byte, final bool) error {
	if bs.writeDone {
		return newError(ErrorWriteAfterCompletion, bs.bytesRead, "write to a completed stream")
	}

	if len(chunk) > 0 {
		if bs.inflating {
			bs.compressed = append(bs.compressed, chunk...)
			bs.inflateStalled = false
		} else {
			bs.chunks = append(bs.chunks, chunk)
			bs.buffered += len(chunk)
		}
	}
	if final {
		bs.writeDone = true
		bs.inflateStalled = false
	}
	return nil
}

// startInflate switches the stream into inflate mode. All currently buffered
// unread bytes become the head of the compressed input.
func (bs *byteStream) startInflate() {
	bs.inflating = true
	if bs.buffered > 0 {
		for i, chunk := range bs.chunks {
			if i == 0 {
				chunk = chunk[bs.head:]
			}
			bs.compressed = append(bs.compressed, chunk...)
		}
	}
	bs.chunks = nil
	bs.head = 0
	bs.buffered = 0
}

// ensure makes at least n unread bytes available, producing inflate output
// as needed. It fails with ErrDataRequired when more input must be written
// first, and with errDataEnd when the stream is final but short.
func (bs *byteStream) ensure(n int) error {
	if bs.inflating {
		if err := bs.inflateTo(n); err != nil {
			return err
		}
	}
	if bs.buffered >= n {
		return nil
	}
	if bs.writeDone && (!bs.inflating || bs.inflateDone) {
		return errDataEnd
	}
	return ErrDataRequired
}

// inflateTo produces decompressed output until at least n unread bytes are
// buffered, the inflater needs more input, or the deflate stream ends. Output
// is produced in windows of at most inflateWindowSize bytes.
func (bs *byteStream) inflateTo(n int) error {
	for bs.buffered < n && !bs.inflateDone {
		if bs.inflateStalled {
			return nil // caller reports ErrDataRequired
		}

		if !bs.inflaterValid {
			if err := bs.rebuildInflater(); err != nil {
				return err
			}
		}

		need := n - bs.buffered
		if need > inflateWindowSize {
			need = inflateWindowSize
		}
		buf := make([]byte, need)

		read := 0
		var err error
		for read < need && err == nil {
			var m int
			m, err = bs.inflater.Read(buf[read:])
			read += m
		}
		if read > 0 {
			bs.chunks = append(bs.chunks, buf[:read])
			bs.buffered += read
			bs.inflatedTotal += int64(read)
		}

		if err == nil {
			continue
		}
		if err == io.EOF {
			bs.inflateDone = true
			bs.inflater.Close()
			return nil
		}
		if errors.Is(err, errInflateStarved) {
			// compress/flate cannot resume after a starved read, so the
			// inflater is rebuilt once more input arrives.
			bs.inflaterValid = false
			bs.inflateStalled = true
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			return errDataEnd
		}
		return newError(ErrorDataInvalid, bs.bytesRead, "inflating data: %v", err)
	}
	return nil
}

// rebuildInflater constructs a fresh flate reader over the full compressed
// input and discards the output already delivered to the caller.
func (bs *byteStream) rebuildInflater() error {
	bs.inflater = flate.NewReader(&inflateSource{bs: bs})
	if bs.inflatedTotal > 0 {
		if _, err := io.CopyN(io.Discard, bs.inflater, bs.inflatedTotal); err != nil {
			if err == io.ErrUnexpectedEOF || errors.Is(err, errInflateStarved) {
				return errDataEnd
			}
			return newError(ErrorDataInvalid, bs.bytesRead, "inflating data: %v", err)
		}
	}
	bs.inflaterValid = true
	return nil
}

// read consumes and returns exactly n bytes. The returned slice is exclusive
// to the caller.
func (bs *byteStream) read(n int) ([]byte, error) {
	if err := bs.ensure(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	first := bs.chunks[0][bs.head:]
	if len(first) >= n {
		out := first[:n:n]
		if len(first) == n {
			bs.chunks = bs.chunks[1:]
			bs.head = 0
		} else {
			bs.head += n
		}
		bs.buffered -= n
		bs.bytesRead += uint64(n)
		return out, nil
	}

	out := make([]byte, n)
	copied := 0
	for copied < n {
		chunk := bs.chunks[0][bs.head:]
		m := copy(out[copied:], chunk)
		copied += m
		if m == len(chunk) {
			bs.chunks = bs.chunks[1:]
			bs.head = 0
		} else {
			bs.head += m
		}
	}
	bs.buffered -= n
	bs.bytesRead += uint64(n)
	return out, nil
}

// peek returns the next n bytes without consuming them.
func (bs *byteStream) peek(n int) ([]byte, error) {
	if err := bs.ensure(n); err != nil {
		return nil, err
	}

	out := make([]byte, 0, n)
	head := bs.head
	for i := 0; len(out) < n; i++ {
		chunk := bs.chunks[i][head:]
		remaining := n - len(out)
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		out = append(out, chunk...)
		head = 0
	}
	return out, nil
}

// isFullyConsumed holds only when no unread bytes remain, writing is
// finished, and any inflate stream has reached its defined end.
func (bs *byteStream) isFullyConsumed() bool {
	if bs.buffered > 0 || !bs.writeDone {
		return false
	}
	if bs.inflating && !bs.inflateDone {
		// the remaining compressed input may hold only the stream trailer
		if err := bs.inflateTo(1); err != nil {
			return false
		}
		return bs.buffered == 0 && bs.inflateDone
	}
	return true
}
