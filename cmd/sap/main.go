// Command sap runs snapshot-and-lazy-load providers.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sap/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
