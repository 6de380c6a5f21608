// Command pggraphql compiles nested selection trees into single PostgreSQL
// statements that return JSON.
//
// Usage:
//
//	pggraphql [flags] <command>
//
// Commands that execute SQL (run) need --db or PGGRAPHQL_DATABASE_URL.
// Commands that only read files (compile, validate, test) do not.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pggraphql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
