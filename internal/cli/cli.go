// Package cli implements the fiisync subcommands.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/MatheusEger/fiisync/internal/app"
)

// Register registers every subcommand on the commander.
func Register(c *subcommands.Commander) {
	c.Register(&loginCmd{}, "session")

	c.Register(&catalogCmd{}, "sync")
	c.Register(&indicatorsCmd{}, "sync")
	c.Register(&quotesCmd{}, "sync")
	c.Register(&propertiesCmd{}, "sync")
}

// The CLI is short-lived, so a process-global config flag is fine.
var configPath = flag.String("config", "", "Path to the fiisync.toml config file")

func initApp() (*app.App, error) {
	return app.NewApp(*configPath)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
