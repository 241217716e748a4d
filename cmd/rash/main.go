package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rash-sh/rash-go/cmd/rash/cmd"
	"github.com/rash-sh/rash-go/internal/modules"
	"github.com/rash-sh/rash-go/internal/privilege"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == privilege.BecomeChildFlag {
		if err := runChild(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runChild is the --become-child entry point: it reads a ChildRequest
// from stdin, drops privileges, runs the named module in-process, and
// writes the ChildResponse to stdout. See internal/privilege.RunChild.
func runChild() error {
	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading become request: %w", err)
	}
	registry := modules.NewDefaultRegistry()
	return privilege.RunChild(context.Background(), payload, os.Stdout, registry)
}
