package blueprint

import (
	"encoding/binary"
	"math"
)

// Header layout, all integers big-endian:
//
//	Reserved:  3 bytes (ignored)
//	Version:   3 bytes
//	Checksum:  6 bytes (opaque, never verified)
//	Width:     4 bytes
//	Height:    4 bytes
const (
	reservedSize = 3
	versionSize  = 3
	checksumSize = 6

	// HeaderSize is the size of the container header in bytes.
	HeaderSize = reservedSize + versionSize + checksumSize + 4 + 4 // 20 bytes

	// MaxVersion is the largest version a 3-byte field can hold.
	MaxVersion = 1<<24 - 1
)

// Header is the fixed-size header at the front of every container.
type Header struct {
	Version  uint32
	Checksum [checksumSize]byte
	Width    uint32
	Height   uint32
}

// Cells returns width*height without overflow.
func (h Header) Cells() uint64 {
	return uint64(h.Width) * uint64(h.Height)
}

// GridBytes returns the payload length a grid of these dimensions needs,
// saturating at math.MaxUint64.
func (h Header) GridBytes() uint64 {
	return gridBytes(h.Cells())
}

func gridBytes(cells uint64) uint64 {
	if cells > math.MaxUint64/cellSize {
		return math.MaxUint64
	}
	return cells * cellSize
}

// ParseHeader consumes HeaderSize bytes from r. The only failure is
// running out of input.
func ParseHeader(r *Reader) (Header, error) {
	var h Header

	if _, ok := r.next(reservedSize); !ok {
		return Header{}, truncatedHeader(r, "reserved", reservedSize)
	}

	v, ok := r.uint24BE()
	if !ok {
		return Header{}, truncatedHeader(r, "version", versionSize)
	}
	h.Version = v

	sum, ok := r.next(checksumSize)
	if !ok {
		return Header{}, truncatedHeader(r, "checksum", checksumSize)
	}
	copy(h.Checksum[:], sum)

	if h.Width, ok = r.uint32BE(); !ok {
		return Header{}, truncatedHeader(r, "width", 4)
	}
	if h.Height, ok = r.uint32BE(); !ok {
		return Header{}, truncatedHeader(r, "height", 4)
	}
	return h, nil
}

// DecodeHeader parses a header from the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	return ParseHeader(NewReader(buf))
}

// EncodeHeader writes a header to a byte slice. The reserved bytes are zero
// and Version is truncated to its low 24 bits.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	buf[3] = byte(h.Version >> 16)
	buf[4] = byte(h.Version >> 8)
	buf[5] = byte(h.Version)
	copy(buf[6:12], h.Checksum[:])
	binary.BigEndian.PutUint32(buf[12:16], h.Width)
	binary.BigEndian.PutUint32(buf[16:20], h.Height)
	return buf
}

func truncatedHeader(r *Reader, field string, need int) error {
	return &FormatError{
		Err:    ErrTruncatedHeader,
		Block:  headerBlock,
		Field:  field,
		Offset: r.Offset(),
		Need:   need,
		Have:   r.Len(),
	}
}
