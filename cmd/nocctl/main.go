// Package main is the entry point for the noc-analyst CLI tool.
package main

import (
	"os"

	"github.com/rlibbert/noc-analyst/cmd/nocctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
