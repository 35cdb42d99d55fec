// Command localdoc inspects and edits a local document store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/localdoc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
