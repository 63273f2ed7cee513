// Package frame turns a raw, arbitrarily-chunked TCP byte stream into a
// sequence of whole protocol frames, honouring the wire header's
// declared body length. Ported from the original client's
// FrameAssembler (original_source/source/common/protocol/frame_assembler.cpp),
// which buffers bytes in a deque and only ever pops once a full header,
// then a full body, is available.
package frame

import (
	"github.com/danejoe001/transclient/pkg/wire"
)

// Assembler accumulates bytes pushed from the wire and yields complete
// frames in arrival order. It never allocates per byte pushed and never
// searches for resynchronization: a framing error drops everything
// buffered so far, by design.
type Assembler struct {
	buffer       []byte
	header       *wire.FrameHeader
	limits       wire.Limits
	framingError error
}

// New creates an empty Assembler.
func New(limits wire.Limits) *Assembler {
	return &Assembler{limits: limits}
}

// Push appends newly-read bytes to the internal buffer.
func (a *Assembler) Push(data []byte) {
	a.buffer = append(a.buffer, data...)
}

// FramingError returns the last unrecoverable framing error, if any.
// Once set it persists and is never cleared. The error itself empties
// the buffer, so bytes pushed before it are lost; frames pushed after it
// are assembled and returned by Pop as usual.
func (a *Assembler) FramingError() error { return a.framingError }

// Pop returns the next complete frame, or ok=false if more bytes are
// needed. It proceeds in two steps: cache the header once >=16 bytes
// are buffered, then wait for the full declared body before slicing
// off one frame.
func (a *Assembler) Pop() (f []byte, ok bool) {
	if a.header == nil {
		if len(a.buffer) < wire.HeaderSize {
			return nil, false
		}
		header, err := wire.DecodeHeader(a.buffer[:wire.HeaderSize])
		if err != nil {
			a.framingError = err
			a.reset()
			return nil, false
		}
		a.header = &header
	}

	total := wire.HeaderSize + int(a.header.BodyLength)
	if len(a.buffer) < total {
		return nil, false
	}

	frameBytes := make([]byte, total)
	copy(frameBytes, a.buffer[:total])
	a.buffer = a.buffer[total:]
	a.header = nil
	return frameBytes, true
}

// reset clears the buffered bytes and cached header; called when the
// stream is considered unsynchronized and there is no byte-level resync
// search, by design.
func (a *Assembler) reset() {
	a.buffer = nil
	a.header = nil
}
