package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bravo68web/gitkit/internal/application/commands"
)

func main() {
	registry := commands.NewCommandRegistry()
	cmd := registry.RegisterCLI()

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
