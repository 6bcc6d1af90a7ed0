// Package cli implements the command-line interface for bpdecode.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eunmann/bpdecode/internal/logctx"
	"github.com/eunmann/bpdecode/pkg/blueprint"
	"github.com/eunmann/bpdecode/pkg/humanfmt"
	"github.com/eunmann/bpdecode/pkg/membudget"
	"github.com/eunmann/bpdecode/pkg/memdiag"
	"github.com/eunmann/bpdecode/pkg/source"
	"github.com/eunmann/bpdecode/pkg/transport"
)

// memBudgetEnv overrides the auto-detected memory budget.
const memBudgetEnv = "BPDECODE_MEM_BUDGET"

const usage = `usage: bpdecode <command> [options]
commands:
  info     print the header and block table
  grid     render a block's grid as text
  export   write a block's grid as a Parquet table
  repack   re-encode a blueprint`

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	return a.run(context.Background(), args)
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "info":
		return a.runInfo(ctx, args[1:])
	case "grid":
		return a.runGrid(ctx, args[1:])
	case "export":
		return a.runExport(ctx, args[1:])
	case "repack":
		return a.runRepack(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(a.stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	in        string
	debug     bool
	human     bool
	strict    bool
	memBudget string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.in, "in", "", `blueprint to read: a path, s3://bucket/key, or "-" for stdin`)
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&c.human, "human", false, "human-friendly log output")
	fs.BoolVar(&c.strict, "strict", false, "reject blocks whose declared size disagrees with their contents")
	fs.StringVar(&c.memBudget, "mem-budget", "", "memory budget for a decode (e.g. 512MiB, 4GiB)")
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// setup validates the common flags and returns a context carrying the
// command's logger.
func (a *app) setup(ctx context.Context, command string, c *commonFlags) (context.Context, error) {
	if c.in == "" {
		return nil, errors.New("--in is required")
	}
	logger := logctx.NewConfiguredLogger(a.stderr, c.debug, c.human)
	ctx = logctx.WithLogger(ctx, logger)
	return logctx.WithStr(ctx, "command", command), nil
}

// loadContainer reads, transport-decodes and decodes the --in blueprint.
func (a *app) loadContainer(ctx context.Context, c *commonFlags) (*blueprint.Container, *blueprint.Decoder, error) {
	log := logctx.FromContext(ctx)

	budget, err := determineMemoryBudget(c.memBudget)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().
		Str("budget", humanfmt.Bytes(budget.Total())).
		Str("source", string(budget.Source())).
		Msg("memory budget")

	loader := source.Loader{Stdin: a.stdin}
	text, err := loader.Load(ctx, c.in)
	if err != nil {
		return nil, nil, err
	}
	raw, err := transport.Decode(string(text))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", c.in, err)
	}

	dec, err := blueprint.NewDecoder(blueprint.Options{Strict: c.strict, Budget: budget})
	if err != nil {
		return nil, nil, err
	}

	before := memdiag.Read()
	start := time.Now()
	container, err := dec.DecodeContext(ctx, raw)
	if err != nil {
		dec.Close()
		return nil, nil, fmt.Errorf("%s: %w", c.in, err)
	}
	elapsed := time.Since(start)

	log.Debug().
		Int("blocks", len(container.Blocks)).
		Str("raw_size", humanfmt.Bytes(uint64(len(raw)))).
		Str("elapsed", humanfmt.Duration(elapsed)).
		Str("throughput", humanfmt.Throughput(uint64(len(raw)), elapsed)).
		Msg("decoded container")

	var reserved uint64
	for _, b := range container.Blocks {
		reserved += uint64(b.DataSize)
	}
	memdiag.LogWithBudget(ctx, "after decode", before, budget, reserved)
	return container, dec, nil
}

// determineMemoryBudget picks the budget from the --mem-budget flag, then
// BPDECODE_MEM_BUDGET, then 50% of system RAM.
func determineMemoryBudget(cliValue string) (*membudget.Budget, error) {
	if cliValue != "" {
		n, err := membudget.ParseHumanSize(cliValue)
		if err != nil {
			return nil, fmt.Errorf("invalid --mem-budget %q: %w", cliValue, err)
		}
		return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceCLI}), nil
	}

	if env := os.Getenv(memBudgetEnv); env != "" {
		n, err := membudget.ParseHumanSize(env)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", memBudgetEnv, env, err)
		}
		return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceEnv}), nil
	}

	return membudget.NewFromSystemRAM(), nil
}
