package main

// Entry point of polarise-swapper
// Executes the Cobra root command and maps its error to the exit code

import (
	"fmt"
	"os"

	"polarise-swapper/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
