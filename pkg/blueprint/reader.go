package blueprint

import "encoding/binary"

// Reader is a forward-only cursor over a decoded container. Header parsing
// and block framing share one Reader so each step resumes where the last
// one stopped.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return int64(r.off)
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

// Remaining returns the unread bytes without consuming them.
func (r *Reader) Remaining() []byte {
	return r.buf[r.off:]
}

// Skip advances the cursor by n bytes, clamped to the end of the input.
func (r *Reader) Skip(n int) {
	r.off += min(n, r.Len())
}

// next consumes n bytes. It consumes nothing and reports false if fewer remain.
func (r *Reader) next(n int) ([]byte, bool) {
	if r.Len() < n {
		return nil, false
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *Reader) uint32BE() (uint32, bool) {
	b, ok := r.next(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

// uint24BE reads three big-endian bytes widened to 32 bits.
func (r *Reader) uint24BE() (uint32, bool) {
	b, ok := r.next(3)
	if !ok {
		return 0, false
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), true
}
