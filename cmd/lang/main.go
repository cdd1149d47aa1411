// Package main is the entry point for the lang CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/lang/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
