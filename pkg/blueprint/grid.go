package blueprint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/eunmann/bpdecode/pkg/ink"
)

// cellSize is the width of one encoded cell in a payload.
const cellSize = 4

// UnknownSymbolCode records a cell whose code is not in the ink table.
// The cell itself decodes to ink.Invalid.
type UnknownSymbolCode struct {
	Code uint32
	Y    int
	X    int
}

func (u UnknownSymbolCode) String() string {
	return fmt.Sprintf("unknown ink code %#08x at (y=%d, x=%d)", u.Code, u.Y, u.X)
}

// Grid is a height×width array of inks stored row-major.
type Grid struct {
	Width  int
	Height int
	Cells  []ink.Ink

	// Diagnostics lists every cell that held an unknown code, in row-major order.
	Diagnostics []UnknownSymbolCode
}

// DecodeGrid reads width*height big-endian 4-byte codes from the front of
// payload in row-major order. Bytes past the grid are ignored. Unknown codes
// become ink.Invalid and are reported in Grid.Diagnostics.
func DecodeGrid(payload []byte, width, height uint32) (*Grid, error) {
	cells := uint64(width) * uint64(height)
	if cells > uint64(len(payload))/cellSize {
		return nil, &GridSizeMismatchError{Expected: gridBytes(cells), Actual: uint64(len(payload))}
	}

	w, h := int(width), int(height)
	g := &Grid{
		Width:  w,
		Height: h,
		Cells:  make([]ink.Ink, cells),
	}

	// Bounded by the cell count, not the height.
	for i := range g.Cells {
		code := binary.BigEndian.Uint32(payload[i*cellSize:])
		v, ok := ink.FromCode(code)
		if !ok {
			g.Diagnostics = append(g.Diagnostics, UnknownSymbolCode{Code: code, Y: i / w, X: i % w})
		}
		g.Cells[i] = v
	}
	return g, nil
}

// At returns the ink at column x of row y.
func (g *Grid) At(x, y int) ink.Ink {
	return g.Cells[y*g.Width+x]
}

// Row returns row y. The slice aliases the grid.
func (g *Grid) Row(y int) []ink.Ink {
	return g.Cells[y*g.Width : (y+1)*g.Width]
}

// Rows returns the grid as a slice of rows, row 0 first. A grid with no
// cells has no rows.
func (g *Grid) Rows() [][]ink.Ink {
	if len(g.Cells) == 0 {
		return nil
	}
	rows := make([][]ink.Ink, g.Height)
	for y := range rows {
		rows[y] = g.Row(y)
	}
	return rows
}

// Counts returns how many cells hold each ink.
func (g *Grid) Counts() map[ink.Ink]int {
	counts := make(map[ink.Ink]int)
	for _, c := range g.Cells {
		counts[c]++
	}
	return counts
}

// WriteText renders the grid one line per row using each ink's glyph.
// A grid with no cells renders as nothing.
func (g *Grid) WriteText(w io.Writer) error {
	if len(g.Cells) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)
	for y := range g.Height {
		for _, c := range g.Row(y) {
			if _, err := bw.WriteRune(c.Glyph()); err != nil {
				return fmt.Errorf("write grid: %w", err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write grid: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}
	return nil
}
