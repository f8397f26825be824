// ./main.go
package main

import (
	"github.com/ibixina/climbinggame/cmd"
)

// main is the entry point for the climbinggame CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles command-line parsing, configuration, and execution.
	cmd.Execute()
}
