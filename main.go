// Command contacts runs the contacts API server.
package main

import (
	"fmt"
	"os"

	"github.com/msomdec/contacts-api/internal/cli"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := cli.NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
