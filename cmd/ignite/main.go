// Package main provides the entry point for the ignite CLI.
package main

import (
	"os"

	"github.com/randalmurphal/ignition/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
