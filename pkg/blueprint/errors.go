package blueprint

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedHeader indicates the input ended inside the 20-byte header.
	ErrTruncatedHeader = errors.New("truncated header")
	// ErrTruncatedBlock indicates the input ended inside a block's framing fields.
	ErrTruncatedBlock = errors.New("truncated block")
	// ErrDecompression indicates a block payload could not be decompressed
	// to its declared length.
	ErrDecompression = errors.New("decompression failed")
	// ErrGridSizeMismatch indicates a payload is too short for the grid dimensions.
	ErrGridSizeMismatch = errors.New("grid size mismatch")
	// ErrBlockSizeMismatch indicates a block's declared size disagrees with
	// the bytes it occupies. Only reported in strict mode.
	ErrBlockSizeMismatch = errors.New("block size mismatch")
	// ErrBlockIndex indicates a block index outside the container.
	ErrBlockIndex = errors.New("block index out of range")
	// ErrBudgetExceeded indicates an allocation would exceed the memory budget.
	ErrBudgetExceeded = errors.New("memory budget exceeded")
	// ErrUnencodable indicates a grid cell that has no code to write back.
	ErrUnencodable = errors.New("cell has no code")
)

// headerBlock marks a FormatError raised while reading the header.
const headerBlock = -1

// FormatError reports a framing problem together with where it happened.
type FormatError struct {
	Err    error  // ErrTruncatedHeader, ErrTruncatedBlock or ErrBlockSizeMismatch
	Block  int    // block index, or -1 for the header
	Field  string // field being read
	Offset int64  // byte offset of the field
	Need   int    // bytes required (declared size for ErrBlockSizeMismatch)
	Have   int    // bytes available (consumed size for ErrBlockSizeMismatch)
}

func (e *FormatError) Error() string {
	where := "header"
	if e.Block != headerBlock {
		where = fmt.Sprintf("block %d", e.Block)
	}
	if errors.Is(e.Err, ErrBlockSizeMismatch) {
		return fmt.Sprintf("%s: %v at offset %d: declared %d bytes, consumed %d",
			where, e.Err, e.Offset, e.Need, e.Have)
	}
	return fmt.Sprintf("%s: %v: %s at offset %d needs %d bytes, %d available",
		where, e.Err, e.Field, e.Offset, e.Need, e.Have)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DecompressionError reports a block whose compressed stream was corrupt or
// ended before the declared number of bytes was produced.
type DecompressionError struct {
	BlockIndex int
	Offset     int64  // byte offset of the compressed data
	Expected   uint64 // declared data size
	Obtained   uint64 // bytes produced before the failure
	Err        error  // underlying cause
}

func (e *DecompressionError) Error() string {
	msg := fmt.Sprintf("block %d: %v at offset %d: obtained %d of %d bytes",
		e.BlockIndex, ErrDecompression, e.Offset, e.Obtained, e.Expected)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecompressionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecompression}
	}
	return []error{ErrDecompression, e.Err}
}

// GridSizeMismatchError reports a payload shorter than width*height*4.
type GridSizeMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (e *GridSizeMismatchError) Error() string {
	return fmt.Sprintf("%v: need %d payload bytes, have %d", ErrGridSizeMismatch, e.Expected, e.Actual)
}

func (e *GridSizeMismatchError) Unwrap() error { return ErrGridSizeMismatch }
