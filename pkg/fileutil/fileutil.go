// Package fileutil writes output files with tmp+mv semantics so a failed
// export never leaves a partial file at the destination.
package fileutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eunmann/bpdecode/internal/logctx"
)

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// TmpPath returns the temporary path WriteTmpThenMove uses for outPath.
// It sits next to outPath so the final rename stays on one filesystem.
func TmpPath(outPath string) string {
	return filepath.Join(filepath.Dir(outPath), "."+filepath.Base(outPath)+".tmp")
}

// WriteTmpThenMove writes to a temporary file then atomically moves it to the final path.
// The writeFunc receives the temporary path and should write the complete file.
// On success, the file is moved to outPath atomically.
func WriteTmpThenMove(ctx context.Context, outPath string, writeFunc func(tmpPath string) error) error {
	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := TmpPath(outPath)
	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}

	log := logctx.FromContext(ctx)
	log.Debug().Str("path", outPath).Msg("wrote file")
	return nil
}

// WriteFileAtomic writes data to outPath through WriteTmpThenMove.
func WriteFileAtomic(ctx context.Context, outPath string, data []byte) error {
	return WriteTmpThenMove(ctx, outPath, func(tmpPath string) error {
		if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		return nil
	})
}

// syncFile opens, syncs, and closes a file.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	f.Close()
	return err
}
