package blueprint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/eunmann/bpdecode/pkg/membudget"
)

// Block record layout, all integers big-endian:
//
//	Size:      4 bytes (declared record length, see Options.Strict)
//	ID:        4 bytes
//	DataSize:  4 bytes (decompressed payload length)
//	Payload:   one or more zstd frames producing at least DataSize bytes
const blockFieldsSize = 12

// maxPayloadSize is the largest data_size a platform int can index.
var maxPayloadSize uint64 = math.MaxInt

var errPayloadTooLarge = errors.New("data size exceeds addressable memory")

// zstd frame magic numbers, little-endian. Skippable frames use any of 16
// magics sharing the high 28 bits.
const (
	zstdFrameMagic     = 0xFD2FB528
	zstdSkippableMagic = 0x184D2A50
	zstdSkippableMask  = 0xFFFFFFF0
)

// initialPayloadCap caps the up-front allocation for a payload so a forged
// data_size cannot allocate memory the compressed input never fills.
const initialPayloadCap = 1 << 20

// Block is one framed record of a container.
type Block struct {
	Size     uint32
	ID       uint32
	DataSize uint32
	Payload  []byte // exactly DataSize bytes

	Offset         int64 // byte offset of the record's size field
	CompressedSize int   // compressed bytes consumed after the three fields
}

// Framer reads blocks one at a time from a shared Reader.
type Framer struct {
	r        *Reader
	zd       *zstd.Decoder
	strict   bool
	budget   *membudget.Budget
	log      zerolog.Logger
	index    int
	reserved uint64
}

// Next reads the next block. It returns ok == false with a nil error when
// the input ends exactly at a block boundary.
func (f *Framer) Next() (blk Block, ok bool, err error) {
	if f.r.Len() == 0 {
		return Block{}, false, nil
	}

	blk.Offset = f.r.Offset()
	if blk.Size, ok = f.r.uint32BE(); !ok {
		return Block{}, false, f.truncated("size")
	}
	if blk.ID, ok = f.r.uint32BE(); !ok {
		return Block{}, false, f.truncated("id")
	}
	if blk.DataSize, ok = f.r.uint32BE(); !ok {
		return Block{}, false, f.truncated("data_size")
	}

	if uint64(blk.DataSize) > maxPayloadSize {
		return Block{}, false, &DecompressionError{
			BlockIndex: f.index,
			Offset:     f.r.Offset(),
			Expected:   uint64(blk.DataSize),
			Err:        errPayloadTooLarge,
		}
	}

	if f.budget != nil {
		if !f.budget.TryReserve(uint64(blk.DataSize)) {
			return Block{}, false, fmt.Errorf("block %d: payload of %d bytes: %w",
				f.index, blk.DataSize, ErrBudgetExceeded)
		}
		f.reserved += uint64(blk.DataSize)
	}

	start := f.r.Offset()
	payload, consumed, err := f.inflate(f.r.Remaining(), int(blk.DataSize))
	if err != nil {
		return Block{}, false, &DecompressionError{
			BlockIndex: f.index,
			Offset:     start,
			Expected:   uint64(blk.DataSize),
			Obtained:   uint64(len(payload)),
			Err:        err,
		}
	}
	f.r.Skip(consumed)
	blk.Payload = payload
	blk.CompressedSize = consumed

	if f.strict {
		actual := blockFieldsSize + consumed
		if uint64(blk.Size) != uint64(actual) {
			return Block{}, false, &FormatError{
				Err:    ErrBlockSizeMismatch,
				Block:  f.index,
				Field:  "size",
				Offset: blk.Offset,
				Need:   int(blk.Size),
				Have:   actual,
			}
		}
	}

	f.log.Debug().
		Int("block_index", f.index).
		Uint32("block_id", blk.ID).
		Uint32("declared_size", blk.Size).
		Uint32("data_size", blk.DataSize).
		Int("compressed_bytes", consumed).
		Int64("offset", blk.Offset).
		Msg("read block")

	f.index++
	return blk, true, nil
}

// ReadAll reads blocks until the input ends at a block boundary.
func (f *Framer) ReadAll() ([]Block, error) {
	var blocks []Block
	for {
		blk, ok, err := f.Next()
		if err != nil {
			return blocks, err
		}
		if !ok {
			return blocks, nil
		}
		blocks = append(blocks, blk)
	}
}

// Reserved returns the bytes this framer has reserved from its budget.
func (f *Framer) Reserved() uint64 {
	return f.reserved
}

// inflate decompresses whole frames from src until want bytes have been
// produced. Bytes produced past want are dropped. Skippable frames are
// consumed and ignored, including any that directly follow the payload.
// With want == 0 a frame is consumed only if src starts with one, so an
// empty block may carry no compressed data at all.
func (f *Framer) inflate(src []byte, want int) ([]byte, int, error) {
	out := make([]byte, 0, min(want, initialPayloadCap))
	consumed := 0
	frames := 0
	for len(out) < want || (frames == 0 && frameMagic(src[consumed:])) {
		if consumed == len(src) {
			return out, consumed, io.ErrUnexpectedEOF
		}
		n, skippable, err := frameLen(src[consumed:])
		if err != nil {
			return out, consumed, err
		}
		frame := src[consumed : consumed+n]
		consumed += n
		if skippable {
			continue
		}
		frames++

		out, err = f.zd.DecodeAll(frame, out)
		if err != nil {
			return out[:min(len(out), want)], consumed, err
		}
	}

	for skippableMagic(src[consumed:]) {
		n, _, err := frameLen(src[consumed:])
		if err != nil {
			return out[:want], consumed, err
		}
		consumed += n
	}
	return out[:want], consumed, nil
}

// frameMagic reports whether b starts with a zstd or skippable frame.
func frameMagic(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return binary.LittleEndian.Uint32(b) == zstdFrameMagic || skippableMagic(b)
}

func skippableMagic(b []byte) bool {
	return len(b) >= 4 && binary.LittleEndian.Uint32(b)&zstdSkippableMask == zstdSkippableMagic
}

func (f *Framer) truncated(field string) error {
	return &FormatError{
		Err:    ErrTruncatedBlock,
		Block:  f.index,
		Field:  field,
		Offset: f.r.Offset(),
		Need:   4,
		Have:   f.r.Len(),
	}
}
