// Package main is the weslink command.
package main

import (
	"os"

	"github.com/leapstack-labs/weslink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
