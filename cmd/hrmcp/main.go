// Package main is the entry point for the hrmcp CLI.
package main

import (
	"os"

	"github.com/rowstack-labs/hrmcp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
