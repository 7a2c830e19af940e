package protocol

import "io"

// compactDenominator: when the unconsumed remainder is smaller than this
// fraction of capacity (1/denominator), consumed bytes are shifted out.
const compactDenominator = 4

// Buffer is a growable per-connection read buffer with an incremental frame
// iterator. One Buffer lives on each side of every connection. It survives
// partial reads: a frame split across several Fill calls is delivered exactly
// once, when complete.
type Buffer struct {
	data  []byte
	start int // consumed prefix
}

// NewBuffer returns a Buffer with a small initial capacity.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, 4096)}
}

// Fill performs a single read from r into the buffer's tail and returns the
// byte count. Views returned by earlier Next calls are invalidated.
func (b *Buffer) Fill(r io.Reader) (int, error) {
	b.maybeCompact()
	if free := cap(b.data) - len(b.data); free < 4096 {
		grown := make([]byte, len(b.data), cap(b.data)*2+4096)
		copy(grown, b.data)
		b.data = grown
	}
	n, err := r.Read(b.data[len(b.data):cap(b.data)])
	b.data = b.data[:len(b.data)+n]
	return n, err
}

// Next pulls the next complete frame. It returns ok=false when the buffered
// bytes do not yet hold a full frame. The returned payload is a view into the
// buffer, valid until the next Fill; callers that hold it longer must copy.
func (b *Buffer) Next() (Frame, bool, error) {
	pending := b.data[b.start:]
	if len(pending) < HeaderSize {
		return Frame{}, false, nil
	}
	tag := Tag(pending[0])
	if tag < TagInput || tag > tagMax {
		return Frame{}, false, ErrBadTag
	}
	size := uint32(pending[1]) | uint32(pending[2])<<8 | uint32(pending[3])<<16 | uint32(pending[4])<<24
	if size > MaxPayload {
		return Frame{}, false, ErrFrameTooLarge
	}
	if len(pending) < HeaderSize+int(size) {
		return Frame{}, false, nil
	}
	b.start += HeaderSize + int(size)
	return Frame{Tag: tag, Payload: pending[HeaderSize : HeaderSize+size]}, true, nil
}

// Len reports the number of unconsumed bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.start
}

func (b *Buffer) maybeCompact() {
	if b.start == 0 {
		return
	}
	remainder := len(b.data) - b.start
	if remainder == 0 {
		b.data = b.data[:0]
		b.start = 0
		return
	}
	if remainder < cap(b.data)/compactDenominator {
		copy(b.data, b.data[b.start:])
		b.data = b.data[:remainder]
		b.start = 0
	}
}
