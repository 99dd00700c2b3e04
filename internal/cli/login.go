package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type loginCmd struct{}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "authenticate and persist the bearer token" }
func (*loginCmd) Usage() string {
	return `fiisync login

  Exchanges the configured credentials for a bearer token and persists
  it, so subsequent runs start from the stored session.
`
}

func (*loginCmd) SetFlags(*flag.FlagSet) {}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := initApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if _, err := a.Plexa.Login(ctx); err != nil {
		return fail(err)
	}

	fmt.Println("Login OK, token persisted")
	return subcommands.ExitSuccess
}
