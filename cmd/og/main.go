// Package main provides the entry point for the og CLI.
package main

import (
	"os"

	"github.com/nijaru/og/cmd/og/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
