package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// minDocumentSize is the smallest possible BSON document: a 4-byte
	// length prefix plus the terminating null byte.
	minDocumentSize = 5

	// DefaultMaxMessageBytes is the framing sanity ceiling when the
	// caller does not configure one. Large enough for a 256^3 RGBA LUT
	// encoded as an array of doubles, small enough to reject garbage
	// length prefixes before allocating.
	DefaultMaxMessageBytes = 512 << 20
)

// Framer assembles complete BSON documents from a TCP byte stream.
//
// Documents are self-describing: the first 4 bytes are the little-endian
// total document length. Message boundaries do not align with read
// boundaries, so the framer buffers partial data across Feed calls and a
// single Feed may complete several messages.
//
// A Framer is owned by one connection and is not safe for concurrent use.
type Framer struct {
	buf []byte
	max int
}

// NewFramer creates a framer with the given message size ceiling.
// A ceiling of 0 or below selects DefaultMaxMessageBytes.
func NewFramer(maxBytes int) *Framer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	return &Framer{max: maxBytes}
}

// Feed appends bytes received from the connection.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the next complete document, or nil if more bytes are
// needed. Consumed bytes are removed from the buffer only when a full
// document is available; unconsumed partial data is retained.
//
// A declared length below the BSON minimum or above the ceiling returns a
// FramingError; the framer is then in an undefined state and the owning
// connection must be closed.
func (f *Framer) Next() ([]byte, error) {
	if len(f.buf) < 4 {
		return nil, nil
	}

	declared := binary.LittleEndian.Uint32(f.buf[:4])
	if declared < minDocumentSize {
		return nil, &FramingError{Reason: fmt.Sprintf("declared length %d below minimum %d", declared, minDocumentSize)}
	}
	if int64(declared) > int64(f.max) {
		return nil, &FramingError{Reason: fmt.Sprintf("declared length %d exceeds ceiling %d", declared, f.max)}
	}

	size := int(declared)
	if len(f.buf) < size {
		return nil, nil
	}

	// Copy the document out so the receive buffer can be compacted
	// without invalidating messages still being processed.
	doc := make([]byte, size)
	copy(doc, f.buf[:size])
	f.buf = f.buf[size:]
	return doc, nil
}

// Buffered returns the number of unconsumed bytes held by the framer.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
