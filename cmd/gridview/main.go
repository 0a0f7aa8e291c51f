// Command gridview validates view definitions, imports records and browses
// table views.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/gridview/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		// Commands with SilenceErrors already reported through the formatter;
		// usage and flag errors have not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
