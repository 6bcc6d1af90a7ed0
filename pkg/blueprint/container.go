// Package blueprint decodes blueprint containers: a fixed header followed by
// length-framed, zstd-compressed blocks, one of which holds the ink grid.
//
// The input is the raw byte stream after transport decoding (see package
// transport). Decoding is synchronous and each call is independent.
//
// Usage:
//
//	c, err := blueprint.Decode(raw)
//	if err != nil {
//		return err
//	}
//	grid, err := c.Grid(0)
package blueprint

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/bpdecode/internal/logctx"
	"github.com/eunmann/bpdecode/pkg/membudget"
)

// Container is a decoded blueprint. It is not modified after Decode returns.
type Container struct {
	Header Header
	Blocks []Block

	budget *membudget.Budget
}

// Grid decodes the payload of block blockIndex as a grid of the header's
// dimensions.
func (c *Container) Grid(blockIndex int) (*Grid, error) {
	if blockIndex < 0 || blockIndex >= len(c.Blocks) {
		return nil, fmt.Errorf("%w: %d (container has %d blocks)", ErrBlockIndex, blockIndex, len(c.Blocks))
	}

	if c.budget != nil {
		// One byte per decoded cell.
		n := c.Header.Cells()
		if !c.budget.TryReserve(n) {
			return nil, fmt.Errorf("grid of %d cells: %w", n, ErrBudgetExceeded)
		}
		defer c.budget.Release(n)
	}

	g, err := DecodeGrid(c.Blocks[blockIndex].Payload, c.Header.Width, c.Header.Height)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", blockIndex, err)
	}
	return g, nil
}

// Options configures a Decoder.
type Options struct {
	// Strict rejects blocks whose declared size is not 12 plus the number of
	// compressed bytes they occupy.
	Strict bool

	// Budget, if set, bounds the payload bytes a single decode may allocate
	// and the cells a single grid decode may allocate. Reservations are
	// released when the call returns.
	Budget *membudget.Budget
}

// Decoder decodes containers. A Decoder is safe for concurrent use.
type Decoder struct {
	opts Options
	zd   *zstd.Decoder
}

// NewDecoder creates a Decoder.
func NewDecoder(opts Options) (*Decoder, error) {
	// The budget is enforced by reservations before each payload, not by the
	// zstd decoder, whose memory limit also caps the window size.
	zd, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Decoder{opts: opts, zd: zd}, nil
}

// Close releases the decoder's resources.
func (d *Decoder) Close() {
	d.zd.Close()
}

// Decode decodes a whole container.
func (d *Decoder) Decode(data []byte) (*Container, error) {
	return d.DecodeContext(context.Background(), data)
}

// DecodeContext is Decode with a context carrying the logger.
func (d *Decoder) DecodeContext(ctx context.Context, data []byte) (*Container, error) {
	log := logctx.FromContext(ctx)

	r := NewReader(data)
	h, err := ParseHeader(r)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Uint32("version", h.Version).
		Uint32("width", h.Width).
		Uint32("height", h.Height).
		Msg("parsed header")

	f := d.NewFramer(ctx, r)
	defer func() {
		if d.opts.Budget != nil {
			d.opts.Budget.Release(f.Reserved())
		}
	}()

	blocks, err := f.ReadAll()
	if err != nil {
		return nil, err
	}

	return &Container{Header: h, Blocks: blocks, budget: d.opts.Budget}, nil
}

// NewFramer returns a Framer reading blocks from r with the decoder's options.
func (d *Decoder) NewFramer(ctx context.Context, r *Reader) *Framer {
	return &Framer{
		r:      r,
		zd:     d.zd,
		strict: d.opts.Strict,
		budget: d.opts.Budget,
		log:    logctx.FromContext(ctx),
	}
}

var defaultDecoder = sync.OnceValues(func() (*Decoder, error) {
	return NewDecoder(Options{})
})

// Decode decodes a container with default options.
func Decode(data []byte) (*Container, error) {
	d, err := defaultDecoder()
	if err != nil {
		return nil, err
	}
	return d.Decode(data)
}

// DecodeGridAt decodes a container and the grid in block blockIndex.
func DecodeGridAt(data []byte, blockIndex int) (*Grid, error) {
	c, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Grid(blockIndex)
}
