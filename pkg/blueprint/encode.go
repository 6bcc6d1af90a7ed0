package blueprint

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/bpdecode/pkg/ink"
)

// CompressionLevel defines the compression effort level.
type CompressionLevel int

const (
	// CompressionFastest prioritizes speed over ratio.
	CompressionFastest CompressionLevel = 1
	// CompressionDefault balances speed and ratio.
	CompressionDefault CompressionLevel = 3
	// CompressionBetter prioritizes ratio over speed.
	CompressionBetter CompressionLevel = 6
)

// ParseCompressionLevel maps "fastest", "default" and "better" to a level.
func ParseCompressionLevel(s string) (CompressionLevel, error) {
	switch s {
	case "fastest":
		return CompressionFastest, nil
	case "", "default":
		return CompressionDefault, nil
	case "better":
		return CompressionBetter, nil
	default:
		return 0, fmt.Errorf("unknown compression level: %s", s)
	}
}

// Encoder writes a container: one header, then any number of blocks.
type Encoder struct {
	w           io.Writer
	enc         *zstd.Encoder
	wroteHeader bool
	buf         []byte
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer, level CompressionLevel) (*Encoder, error) {
	zstdLevel := zstd.SpeedDefault
	switch level {
	case CompressionFastest:
		zstdLevel = zstd.SpeedFastest
	case CompressionDefault:
		zstdLevel = zstd.SpeedDefault
	case CompressionBetter:
		zstdLevel = zstd.SpeedBetterCompression
	}

	// Zero frames keep empty payloads framed, so every block owns a frame.
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstdLevel),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{w: w, enc: enc}, nil
}

// WriteHeader writes the container header. It must be called exactly once,
// before any block.
func (e *Encoder) WriteHeader(h Header) error {
	if e.wroteHeader {
		return fmt.Errorf("header already written")
	}
	if h.Version > MaxVersion {
		return fmt.Errorf("version %d does not fit in 24 bits", h.Version)
	}
	if _, err := e.w.Write(EncodeHeader(h)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	e.wroteHeader = true
	return nil
}

// WriteBlock compresses payload into a single frame and writes the block
// record. The declared size is 12 plus the compressed length.
func (e *Encoder) WriteBlock(id uint32, payload []byte) error {
	if !e.wroteHeader {
		return fmt.Errorf("write block before header")
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return fmt.Errorf("payload of %d bytes exceeds 32-bit data size", len(payload))
	}

	e.buf = append(e.buf[:0], make([]byte, blockFieldsSize)...)
	e.buf = e.enc.EncodeAll(payload, e.buf)
	compressed := len(e.buf) - blockFieldsSize
	if uint64(blockFieldsSize+compressed) > uint64(^uint32(0)) {
		return fmt.Errorf("block of %d compressed bytes exceeds 32-bit size", compressed)
	}

	binary.BigEndian.PutUint32(e.buf[0:4], uint32(blockFieldsSize+compressed))
	binary.BigEndian.PutUint32(e.buf[4:8], id)
	binary.BigEndian.PutUint32(e.buf[8:12], uint32(len(payload)))

	if _, err := e.w.Write(e.buf); err != nil {
		return fmt.Errorf("write block: %w", err)
	}
	return nil
}

// Close releases the encoder. It does not close the underlying writer.
func (e *Encoder) Close() error {
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}
	return nil
}

// EncodeContainer writes c's header and every block's payload to w.
func EncodeContainer(w io.Writer, c *Container, level CompressionLevel) error {
	enc, err := NewEncoder(w, level)
	if err != nil {
		return err
	}
	defer enc.Close()

	if err := enc.WriteHeader(c.Header); err != nil {
		return err
	}
	for i, blk := range c.Blocks {
		if err := enc.WriteBlock(blk.ID, blk.Payload); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	return nil
}

// EncodeGrid turns a grid back into a payload. Invalid cells are written
// with the code recorded for them in Diagnostics.
func EncodeGrid(g *Grid) ([]byte, error) {
	unknown := make(map[int]uint32, len(g.Diagnostics))
	for _, d := range g.Diagnostics {
		unknown[d.Y*g.Width+d.X] = d.Code
	}

	buf := make([]byte, len(g.Cells)*cellSize)
	for i, c := range g.Cells {
		code, ok := ink.CodeOf(c)
		if !ok {
			if code, ok = unknown[i]; !ok {
				return nil, fmt.Errorf("(y=%d, x=%d): %w", i/g.Width, i%g.Width, ErrUnencodable)
			}
		}
		binary.BigEndian.PutUint32(buf[i*cellSize:], code)
	}
	return buf, nil
}
