// Package gridexport writes decoded grids as Parquet tables, one row per cell.
package gridexport

import (
	"context"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/bpdecode/internal/logctx"
	"github.com/eunmann/bpdecode/pkg/blueprint"
	"github.com/eunmann/bpdecode/pkg/fileutil"
	"github.com/eunmann/bpdecode/pkg/ink"
)

// batchSize is the number of rows buffered per Write call.
const batchSize = 4096

// CellRow is one grid cell. Code holds the raw code for unknown cells and
// the table code for known ones.
type CellRow struct {
	Y    int32  `parquet:"y"`
	X    int32  `parquet:"x"`
	Ink  string `parquet:"ink,dict"`
	Code uint32 `parquet:"code"`
}

// Rows returns the grid's cells in row-major order.
func Rows(g *blueprint.Grid) []CellRow {
	unknown := make(map[int]uint32, len(g.Diagnostics))
	for _, d := range g.Diagnostics {
		unknown[d.Y*g.Width+d.X] = d.Code
	}

	rows := make([]CellRow, len(g.Cells))
	for i, c := range g.Cells {
		code, ok := ink.CodeOf(c)
		if !ok {
			code = unknown[i]
		}
		rows[i] = CellRow{
			Y:    int32(i / g.Width),
			X:    int32(i % g.Width),
			Ink:  c.String(),
			Code: code,
		}
	}
	return rows
}

// WriteParquet writes g to path. The file appears only once it is complete.
func WriteParquet(ctx context.Context, path string, g *blueprint.Grid) error {
	log := logctx.FromContext(ctx)

	rows := Rows(g)
	err := fileutil.WriteTmpThenMove(ctx, path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create parquet file: %w", err)
		}
		defer f.Close()

		w := parquet.NewGenericWriter[CellRow](f, parquet.Compression(&parquet.Zstd))
		for start := 0; start < len(rows); start += batchSize {
			end := min(start+batchSize, len(rows))
			if _, err := w.Write(rows[start:end]); err != nil {
				return fmt.Errorf("write parquet rows: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close parquet writer: %w", err)
		}
		return f.Close()
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("path", path).
		Int("rows", len(rows)).
		Int("unknown_cells", len(g.Diagnostics)).
		Msg("exported grid")
	return nil
}
