package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type propertiesCmd struct{}

func (*propertiesCmd) Name() string     { return "properties" }
func (*propertiesCmd) Synopsis() string { return "sync real-estate portfolio detail" }
func (*propertiesCmd) Usage() string {
	return `fiisync properties

  Scrapes the per-fund property portfolio tables. Paper funds report
  no rows; unchanged rows are absorbed as duplicates.
`
}

func (*propertiesCmd) SetFlags(*flag.FlagSet) {}

func (c *propertiesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := initApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	svc, err := a.SyncService()
	if err != nil {
		return fail(err)
	}

	report, err := svc.SyncProperties(ctx)
	if err != nil {
		return fail(err)
	}

	fmt.Println(report.Summary())
	if report.FundsFailed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
