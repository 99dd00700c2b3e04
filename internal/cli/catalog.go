package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type catalogCmd struct{}

func (*catalogCmd) Name() string     { return "catalog" }
func (*catalogCmd) Synopsis() string { return "refresh the fund universe and snapshot indicators" }
func (*catalogCmd) Usage() string {
	return `fiisync catalog

  Pulls the upstream fund catalog, creating new funds and refreshing
  the descriptive fields and latest-value indicators of existing ones.
`
}

func (*catalogCmd) SetFlags(*flag.FlagSet) {}

func (c *catalogCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := initApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	svc, err := a.SyncService()
	if err != nil {
		return fail(err)
	}

	report, err := svc.SyncCatalog(ctx)
	if err != nil {
		return fail(err)
	}

	fmt.Println(report.Summary())
	if report.FundsFailed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
