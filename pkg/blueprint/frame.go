package blueprint

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstd block header: 3 bytes little-endian.
//
//	bit 0:     last block in frame
//	bits 1-2:  block type
//	bits 3-23: block size
const (
	zstdBlockHeaderSize = 3
	zstdChecksumSize    = 4

	zstdBlockRLE      = 1
	zstdBlockReserved = 3
)

var errReservedBlockType = errors.New("reserved zstd block type")

// frameLen returns the length in bytes of the zstd frame at the start of b,
// without decompressing it. Blocks share one input stream, so the framer
// must know exactly where a block's compressed data ends.
func frameLen(b []byte) (n int, skippable bool, err error) {
	var h zstd.Header
	if err := h.Decode(b); err != nil {
		return 0, false, fmt.Errorf("frame header: %w", err)
	}

	if h.Skippable {
		n := uint64(h.HeaderSize) + uint64(h.SkippableSize)
		if n > uint64(len(b)) {
			return 0, true, io.ErrUnexpectedEOF
		}
		return int(n), true, nil
	}

	off := h.HeaderSize
	for {
		if len(b)-off < zstdBlockHeaderSize {
			return 0, false, io.ErrUnexpectedEOF
		}
		bh := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16
		off += zstdBlockHeaderSize

		last := bh&1 != 0
		size := int(bh >> 3)
		switch (bh >> 1) & 3 {
		case zstdBlockRLE:
			size = 1
		case zstdBlockReserved:
			return 0, false, errReservedBlockType
		}

		if len(b)-off < size {
			return 0, false, io.ErrUnexpectedEOF
		}
		off += size
		if last {
			break
		}
	}

	if h.HasCheckSum {
		if len(b)-off < zstdChecksumSize {
			return 0, false, io.ErrUnexpectedEOF
		}
		off += zstdChecksumSize
	}
	return off, false, nil
}
