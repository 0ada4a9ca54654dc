// Package main provides the entry point for the agx CLI.
package main

import (
	"os"

	"github.com/Luiz-Frias/semantic-code-agx/cmd/agx/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
