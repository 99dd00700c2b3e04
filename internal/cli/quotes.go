package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type quotesCmd struct {
	days int
}

func (*quotesCmd) Name() string     { return "quotes" }
func (*quotesCmd) Synopsis() string { return "sync daily price history" }
func (*quotesCmd) Usage() string {
	return `fiisync quotes [-days 3650]

  Fetches daily price bars for every active fund, keeping only bars
  newer than each fund's stored quote watermark.
`
}

func (c *quotesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 0, "Override the lookback window in days")
}

func (c *quotesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := initApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if c.days > 0 {
		a.Config.Sync.LookbackDays = c.days
	}

	svc, err := a.SyncService()
	if err != nil {
		return fail(err)
	}

	report, err := svc.SyncQuotes(ctx)
	if err != nil {
		return fail(err)
	}

	fmt.Println(report.Summary())
	if report.FundsFailed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
