// The main package for the gboc-get executable.
package main

import (
	"os"

	"github.com/AdamSzakal/gboc-get/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	os.Exit(cmd.Execute())
}
