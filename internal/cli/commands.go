package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/eunmann/bpdecode/internal/logctx"
	"github.com/eunmann/bpdecode/pkg/blueprint"
	"github.com/eunmann/bpdecode/pkg/fileutil"
	"github.com/eunmann/bpdecode/pkg/gridexport"
	"github.com/eunmann/bpdecode/pkg/humanfmt"
	"github.com/eunmann/bpdecode/pkg/transport"
)

// maxLoggedUnknown caps the per-cell warnings the grid command emits.
const maxLoggedUnknown = 10

// containerInfo is the info command's report. Field tags drive the YAML
// output.
type containerInfo struct {
	Version  uint32      `json:"version"`
	Checksum string      `json:"checksum"`
	Width    uint32      `json:"width"`
	Height   uint32      `json:"height"`
	Blocks   []blockInfo `json:"blocks"`
}

type blockInfo struct {
	Index          int    `json:"index"`
	ID             uint32 `json:"id"`
	Offset         int64  `json:"offset"`
	DeclaredSize   uint32 `json:"declaredSize"`
	CompressedSize int    `json:"compressedSize"`
	DataSize       uint32 `json:"dataSize"`
}

func newContainerInfo(c *blueprint.Container) containerInfo {
	info := containerInfo{
		Version:  c.Header.Version,
		Checksum: hex.EncodeToString(c.Header.Checksum[:]),
		Width:    c.Header.Width,
		Height:   c.Header.Height,
		Blocks:   make([]blockInfo, len(c.Blocks)),
	}
	for i, b := range c.Blocks {
		info.Blocks[i] = blockInfo{
			Index:          i,
			ID:             b.ID,
			Offset:         b.Offset,
			DeclaredSize:   b.Size,
			CompressedSize: b.CompressedSize,
			DataSize:       b.DataSize,
		}
	}
	return info
}

func (a *app) runInfo(ctx context.Context, args []string) error {
	fs := a.newFlagSet("info")
	var common commonFlags
	common.register(fs)
	format := fs.String("format", "text", "output format: text or yaml")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "text" && *format != "yaml" {
		return fmt.Errorf("--format must be text or yaml, got %q", *format)
	}
	ctx, err := a.setup(ctx, "info", &common)
	if err != nil {
		return err
	}

	c, dec, err := a.loadContainer(ctx, &common)
	if err != nil {
		return err
	}
	defer dec.Close()

	info := newContainerInfo(c)
	if *format == "yaml" {
		out, err := yaml.Marshal(info)
		if err != nil {
			return fmt.Errorf("marshal info: %w", err)
		}
		_, err = a.stdout.Write(out)
		return err
	}
	return writeInfoText(a.stdout, info)
}

func writeInfoText(w io.Writer, info containerInfo) error {
	fmt.Fprintf(w, "version:  %d\n", info.Version)
	fmt.Fprintf(w, "checksum: %s\n", info.Checksum)
	fmt.Fprintf(w, "grid:     %s\n", humanfmt.Dims(info.Width, info.Height))
	fmt.Fprintf(w, "blocks:   %d\n", len(info.Blocks))
	if len(info.Blocks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nINDEX\tID\tOFFSET\tCOMPRESSED\tDATA\tRATIO")
	for _, b := range info.Blocks {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\n",
			b.Index, b.ID, b.Offset,
			humanfmt.Bytes(uint64(b.CompressedSize)),
			humanfmt.Bytes(uint64(b.DataSize)),
			humanfmt.Ratio(uint64(b.DataSize), uint64(b.CompressedSize)))
	}
	return tw.Flush()
}

// decodeGrid loads the container and decodes block blockIndex, logging
// unknown cell codes.
func (a *app) decodeGrid(ctx context.Context, common *commonFlags, blockIndex int) (*blueprint.Grid, error) {
	c, dec, err := a.loadContainer(ctx, common)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	g, err := c.Grid(blockIndex)
	if err != nil {
		return nil, err
	}

	log := logctx.FromContext(logctx.WithInt(ctx, "block_index", blockIndex))
	for i, d := range g.Diagnostics {
		if i == maxLoggedUnknown {
			break
		}
		log.Warn().
			Str("code", fmt.Sprintf("%#08x", d.Code)).
			Int("y", d.Y).
			Int("x", d.X).
			Msg("unknown ink code")
	}
	if len(g.Diagnostics) > 0 {
		log.Warn().
			Int("unknown_cells", len(g.Diagnostics)).
			Str("cells", humanfmt.Count(uint64(len(g.Cells)))).
			Msg("grid has unknown ink codes")
	}
	return g, nil
}

func (a *app) runGrid(ctx context.Context, args []string) error {
	fs := a.newFlagSet("grid")
	var common commonFlags
	common.register(fs)
	block := fs.Int("block", 0, "index of the block holding the grid")

	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, err := a.setup(ctx, "grid", &common)
	if err != nil {
		return err
	}

	g, err := a.decodeGrid(ctx, &common, *block)
	if err != nil {
		return err
	}
	return g.WriteText(a.stdout)
}

func (a *app) runExport(ctx context.Context, args []string) error {
	fs := a.newFlagSet("export")
	var common commonFlags
	common.register(fs)
	out := fs.String("out", "", "Parquet file to write")
	block := fs.Int("block", 0, "index of the block holding the grid")
	force := fs.Bool("force", false, "overwrite --out if it exists")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}
	if !*force && fileutil.Exists(*out) {
		return fmt.Errorf("%s exists (use --force to overwrite)", *out)
	}
	ctx, err := a.setup(ctx, "export", &common)
	if err != nil {
		return err
	}

	g, err := a.decodeGrid(ctx, &common, *block)
	if err != nil {
		return err
	}
	return gridexport.WriteParquet(ctx, *out, g)
}

func (a *app) runRepack(ctx context.Context, args []string) error {
	fs := a.newFlagSet("repack")
	var common commonFlags
	common.register(fs)
	out := fs.String("out", "", `file to write the re-encoded blueprint to, or "-" for stdout`)
	levelName := fs.String("level", "default", "compression level: fastest, default or better")
	force := fs.Bool("force", false, "overwrite --out if it exists")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}
	level, err := blueprint.ParseCompressionLevel(*levelName)
	if err != nil {
		return fmt.Errorf("--level: %w", err)
	}
	if *out != "-" && !*force && fileutil.Exists(*out) {
		return fmt.Errorf("%s exists (use --force to overwrite)", *out)
	}
	ctx, err = a.setup(ctx, "repack", &common)
	if err != nil {
		return err
	}

	c, dec, err := a.loadContainer(ctx, &common)
	if err != nil {
		return err
	}
	defer dec.Close()

	var raw bytes.Buffer
	if err := blueprint.EncodeContainer(&raw, c, level); err != nil {
		return fmt.Errorf("encode container: %w", err)
	}
	text := transport.Encode(raw.Bytes()) + "\n"

	log := logctx.FromContext(ctx)
	log.Info().
		Int("blocks", len(c.Blocks)).
		Str("raw_size", humanfmt.Bytes(uint64(raw.Len()))).
		Str("level", *levelName).
		Msg("repacked blueprint")

	if *out == "-" {
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	return fileutil.WriteFileAtomic(ctx, *out, []byte(text))
}
