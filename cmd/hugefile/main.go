package main

import (
	"fmt"
	"os"

	"hugefs/internal/cli/commands"
	"hugefs/internal/hugefile"
)

// Set by goreleaser ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hugefile.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
