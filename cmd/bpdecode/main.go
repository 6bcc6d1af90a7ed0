// Command bpdecode inspects, renders and re-encodes blueprint files.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/bpdecode/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
