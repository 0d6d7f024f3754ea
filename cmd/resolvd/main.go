// Package main is the entry point for the resolvd CLI.
package main

import (
	"os"

	"github.com/resolvd/resolvd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
