// Package benchutil generates synthetic blueprints for benchmarks and tests.
package benchutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/eunmann/bpdecode/pkg/blueprint"
	"github.com/eunmann/bpdecode/pkg/ink"
)

// GeneratorConfig configures synthetic grid generation.
type GeneratorConfig struct {
	Width  int
	Height int
	// EmptyFraction is the share of cells left Empty (0.0-1.0). Real
	// blueprints are mostly empty space, which is what makes them compress.
	EmptyFraction float64
	// UnknownFraction is the share of cells given a code outside the ink table.
	UnknownFraction float64
	// Level is the compression level for Blueprint.
	Level blueprint.CompressionLevel
	// Seed for reproducible generation. 0 = use BenchmarkSeed.
	Seed int64
}

// DefaultConfig returns a square grid that is 70% empty.
func DefaultConfig(side int) GeneratorConfig {
	return GeneratorConfig{
		Width:         side,
		Height:        side,
		EmptyFraction: 0.7,
		Level:         blueprint.CompressionDefault,
		Seed:          BenchmarkSeed,
	}
}

// Generator generates synthetic grid payloads and containers.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	inks []ink.Ink
}

// NewGenerator creates a new data generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	var inks []ink.Ink
	for _, i := range ink.All() {
		if i != ink.Empty {
			inks = append(inks, i)
		}
	}
	return &Generator{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(seed)),
		inks: inks,
	}
}

// Payload returns a grid payload of width*height big-endian codes.
func (g *Generator) Payload() []byte {
	n := g.cfg.Width * g.cfg.Height
	buf := make([]byte, 0, n*4)
	for range n {
		buf = binary.BigEndian.AppendUint32(buf, g.code())
	}
	return buf
}

func (g *Generator) code() uint32 {
	r := g.rng.Float64()
	switch {
	case r < g.cfg.EmptyFraction:
		return ink.CodeEmpty
	case r < g.cfg.EmptyFraction+g.cfg.UnknownFraction:
		for {
			c := g.rng.Uint32()
			if _, ok := ink.FromCode(c); !ok {
				return c
			}
		}
	default:
		code, _ := ink.CodeOf(g.inks[g.rng.Intn(len(g.inks))])
		return code
	}
}

// Blueprint returns raw container bytes holding one grid block.
func (g *Generator) Blueprint() ([]byte, error) {
	var buf bytes.Buffer
	enc, err := blueprint.NewEncoder(&buf, g.cfg.Level)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	h := blueprint.Header{
		Version: 1,
		Width:   uint32(g.cfg.Width),
		Height:  uint32(g.cfg.Height),
	}
	if err := enc.WriteHeader(h); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := enc.WriteBlock(0, g.Payload()); err != nil {
		return nil, fmt.Errorf("write grid block: %w", err)
	}
	return buf.Bytes(), nil
}
