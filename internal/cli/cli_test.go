package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/bpdecode/pkg/blueprint"
	"github.com/eunmann/bpdecode/pkg/gridexport"
	"github.com/eunmann/bpdecode/pkg/ink"
	"github.com/eunmann/bpdecode/pkg/membudget"
	"github.com/eunmann/bpdecode/pkg/transport"
)

// writeBlueprint writes a 2x2 blueprint as base64 text and returns its path.
// Cell (y=1, x=1) holds an unknown code.
func writeBlueprint(t *testing.T) string {
	t.Helper()

	var payload []byte
	for _, i := range []ink.Ink{ink.Write, ink.Empty, ink.Trace, ink.Read} {
		code, _ := ink.CodeOf(i)
		payload = binary.BigEndian.AppendUint32(payload, code)
	}
	binary.BigEndian.PutUint32(payload[12:16], 0x01020304)

	var raw bytes.Buffer
	enc, err := blueprint.NewEncoder(&raw, blueprint.CompressionDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	if err := enc.WriteHeader(blueprint.Header{Version: 5, Checksum: [6]byte{0xAB}, Width: 2, Height: 2}); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteBlock(11, payload); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "bp.txt")
	// Wrapped text must still decode.
	text := transport.Encode(raw.Bytes())
	text = text[:10] + "\n" + text[10:] + "\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runApp(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	a := &app{stdin: strings.NewReader(stdin), stdout: &out, stderr: &errOut}
	err = a.run(context.Background(), args)
	return out.String(), errOut.String(), err
}

func TestRunNoArgs(t *testing.T) {
	err := Run(nil)
	if err == nil {
		t.Fatal("expected error with no args")
	}
	if !strings.Contains(err.Error(), "usage") {
		t.Errorf("expected usage message, got: %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run([]string{"unknown"})
	if err == nil {
		t.Fatal("expected error with unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected 'unknown command' error, got: %v", err)
	}
}

func TestMissingIn(t *testing.T) {
	for _, cmd := range []string{"info", "grid"} {
		_, _, err := runApp(t, "", cmd)
		if err == nil || !strings.Contains(err.Error(), "--in") {
			t.Errorf("%s without --in: %v, want '--in' error", cmd, err)
		}
	}
}

func TestMissingOut(t *testing.T) {
	for _, cmd := range []string{"export", "repack"} {
		_, _, err := runApp(t, "", cmd, "--in", "bp.txt")
		if err == nil || !strings.Contains(err.Error(), "--out") {
			t.Errorf("%s without --out: %v, want '--out' error", cmd, err)
		}
	}
}

func TestInfoText(t *testing.T) {
	path := writeBlueprint(t)
	out, _, err := runApp(t, "", "info", "--in", path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"version:  5", "checksum: ab0000000000", "grid:     2×2", "blocks:   1", "INDEX"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestInfoYAML(t *testing.T) {
	path := writeBlueprint(t)
	out, _, err := runApp(t, "", "info", "--in", path, "--format", "yaml")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"version: 5", "width: 2", "height: 2", "id: 11", "dataSize: 16"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestInfoBadFormat(t *testing.T) {
	_, _, err := runApp(t, "", "info", "--in", "x", "--format", "xml")
	if err == nil || !strings.Contains(err.Error(), "--format") {
		t.Errorf("info --format xml: %v", err)
	}
}

func TestGridFromStdin(t *testing.T) {
	text, err := os.ReadFile(writeBlueprint(t))
	if err != nil {
		t.Fatal(err)
	}

	out, logs, err := runApp(t, string(text), "grid", "--in", "-", "--strict")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if out != "w.\nt?\n" {
		t.Errorf("grid output = %q, want %q", out, "w.\nt?\n")
	}
	if !strings.Contains(logs, "unknown ink code") || !strings.Contains(logs, `"block_index":0`) {
		t.Errorf("expected unknown code warning, got logs:\n%s", logs)
	}
}

func TestGridBadBlock(t *testing.T) {
	path := writeBlueprint(t)
	_, _, err := runApp(t, "", "grid", "--in", path, "--block", "3")
	if err == nil || !strings.Contains(err.Error(), "block index") {
		t.Errorf("grid --block 3: %v, want block index error", err)
	}
}

func TestGridInvalidText(t *testing.T) {
	_, _, err := runApp(t, "not base64!", "grid", "--in", "-")
	if err == nil {
		t.Fatal("expected error for invalid base64 input")
	}
}

func TestGridBudgetExceeded(t *testing.T) {
	path := writeBlueprint(t)
	_, _, err := runApp(t, "", "grid", "--in", path, "--mem-budget", "8B")
	if err == nil || !strings.Contains(err.Error(), "memory budget") {
		t.Errorf("grid with 8-byte budget: %v, want budget error", err)
	}
}

func TestExport(t *testing.T) {
	path := writeBlueprint(t)
	outPath := filepath.Join(t.TempDir(), "grid.parquet")

	if _, _, err := runApp(t, "", "export", "--in", path, "--out", outPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := parquet.ReadFile[gridexport.CellRow](outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("read %d rows, want 4", len(rows))
	}
	if rows[3].Ink != "Invalid" || rows[3].Code != 0x01020304 {
		t.Errorf("rows[3] = %+v", rows[3])
	}

	// A second export without --force refuses to overwrite.
	_, _, err = runApp(t, "", "export", "--in", path, "--out", outPath)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("export over existing file: %v", err)
	}
	if _, _, err := runApp(t, "", "export", "--in", path, "--out", outPath, "--force"); err != nil {
		t.Errorf("export --force: %v", err)
	}
}

func TestRepackRoundTrip(t *testing.T) {
	path := writeBlueprint(t)
	outPath := filepath.Join(t.TempDir(), "repacked.txt")

	if _, _, err := runApp(t, "", "repack", "--in", path, "--out", outPath, "--level", "better"); err != nil {
		t.Fatalf("repack: %v", err)
	}

	before, _, err := runApp(t, "", "grid", "--in", path)
	if err != nil {
		t.Fatal(err)
	}
	after, _, err := runApp(t, "", "grid", "--in", outPath, "--strict")
	if err != nil {
		t.Fatalf("grid of repacked file: %v", err)
	}
	if before != after {
		t.Errorf("repacked grid = %q, want %q", after, before)
	}
}

func TestRepackLogsSummary(t *testing.T) {
	path := writeBlueprint(t)
	outPath := filepath.Join(t.TempDir(), "repacked.txt")

	_, logs, err := runApp(t, "", "repack", "--in", path, "--out", outPath, "--debug")
	if err != nil {
		t.Fatalf("repack: %v", err)
	}
	for _, want := range []string{"repacked blueprint", `"command":"repack"`, "wrote file"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestRepackToStdout(t *testing.T) {
	path := writeBlueprint(t)
	out, _, err := runApp(t, "", "repack", "--in", path, "--out", "-")
	if err != nil {
		t.Fatalf("repack: %v", err)
	}
	raw, err := transport.Decode(out)
	if err != nil {
		t.Fatalf("repack output is not base64: %v", err)
	}
	if _, err := blueprint.Decode(raw); err != nil {
		t.Errorf("repack output does not decode: %v", err)
	}
}

func TestRepackBadLevel(t *testing.T) {
	_, _, err := runApp(t, "", "repack", "--in", "x", "--out", "-", "--level", "max")
	if err == nil || !strings.Contains(err.Error(), "--level") {
		t.Errorf("repack --level max: %v", err)
	}
}

func TestDetermineMemoryBudgetCLI(t *testing.T) {
	// CLI flag takes priority
	budget, err := determineMemoryBudget("4GiB")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 4*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 4*1024*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceCLI)
	}
}

func TestDetermineMemoryBudgetEnv(t *testing.T) {
	t.Setenv(memBudgetEnv, "2GiB")

	budget, err := determineMemoryBudget("")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 2*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 2*1024*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceEnv {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceEnv)
	}
}

func TestDetermineMemoryBudgetCLIOverridesEnv(t *testing.T) {
	t.Setenv(memBudgetEnv, "2GiB")

	budget, err := determineMemoryBudget("8GiB")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 8*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 8*1024*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceCLI)
	}
}

func TestDetermineMemoryBudgetDefault(t *testing.T) {
	t.Setenv(memBudgetEnv, "")

	budget, err := determineMemoryBudget("")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Source() != membudget.BudgetSourceAuto50Pct && budget.Source() != membudget.BudgetSourceDefault {
		t.Errorf("Source() = %s, want auto-50pct or default", budget.Source())
	}
}

func TestDetermineMemoryBudgetInvalidCLI(t *testing.T) {
	_, err := determineMemoryBudget("invalid")
	if err == nil {
		t.Fatal("expected error with invalid CLI budget")
	}
	if !strings.Contains(err.Error(), "--mem-budget") {
		t.Errorf("expected '--mem-budget' in error, got: %v", err)
	}
}

func TestDetermineMemoryBudgetInvalidEnv(t *testing.T) {
	t.Setenv(memBudgetEnv, "badvalue")

	_, err := determineMemoryBudget("")
	if err == nil {
		t.Fatal("expected error with invalid env budget")
	}
	if !strings.Contains(err.Error(), memBudgetEnv) {
		t.Errorf("expected %q in error, got: %v", memBudgetEnv, err)
	}
}
