package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/panelgraph/internal/cli"
	"github.com/ppiankov/panelgraph/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
