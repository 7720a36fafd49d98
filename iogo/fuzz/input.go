package fuzz

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Input is a sequential, bounds-checked reader over one iteration's byte
// stream. All reads are little-endian and advance a cursor; a read past the
// end of the stream fails with an error wrapping io.ErrUnexpectedEOF rather
// than returning padding bytes, so a truncated stream is visible to the
// driver instead of silently decoding to garbage.
type Input struct {
	buf []byte
	off int
}

func NewInput(buf []byte) *Input {
	return &Input{buf: buf}
}

// Len returns the number of unconsumed bytes.
func (in *Input) Len() int {
	return len(in.buf) - in.off
}

func (in *Input) take(n int) ([]byte, error) {
	if in.Len() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, in.off, in.Len(), io.ErrUnexpectedEOF)
	}
	b := in.buf[in.off : in.off+n]
	in.off += n
	return b, nil
}

func (in *Input) U8() (uint8, error) {
	b, err := in.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (in *Input) U16() (uint16, error) {
	b, err := in.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (in *Input) U32() (uint32, error) {
	b, err := in.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Range derives an integer in [lo, hi] (inclusive) from the stream. The draw
// always consumes exactly four bytes regardless of the span, so the stream
// layout of an iteration does not depend on the configured range and saved
// inputs stay aligned under byte-flipping mutation. The result is a pure
// function of the consumed bytes: same bytes, same value.
func (in *Input) Range(lo, hi uint64) (uint64, error) {
	if hi < lo {
		panic("io fuzzer: inverted range")
	}
	x, err := in.U32()
	if err != nil {
		return 0, err
	}
	span := hi - lo + 1
	if span == 0 { // full 64-bit range wraps to zero
		return uint64(x), nil
	}
	return lo + uint64(x)%span, nil
}

// Elems fills dst with the next len(dst) raw stream bytes. Element values
// keep their stream byte order end to end; the fuzzer never reinterprets
// them.
func (in *Input) Elems(dst []byte) error {
	b, err := in.take(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}
