// Package interfaces defines service contracts for fiisync
package interfaces

import (
	"context"

	"github.com/MatheusEger/fiisync/internal/models"
)

// Lookback bounds how far back an adapter asks its upstream for
// history. Upstream windows are coarse (whole months or days), which is
// why incremental filtering happens locally against the watermark
// rather than server-side.
type Lookback struct {
	Months int
	Days   int
}

// SourceAdapter is a pluggable fetcher producing raw indicator records
// for one fund. Implementations differ in transport (authenticated
// JSON API, rendered browser page, static HTML) but share this
// downstream contract so the orchestrator is adapter-agnostic.
type SourceAdapter interface {
	// Name identifies the adapter in logs and counters.
	Name() string

	// Snapshot reports whether the adapter produces point-in-time
	// values dated at the run day. Snapshot records stay valid through
	// the running month, while monthly-series records referencing a
	// month still in progress are provisional and must wait for the
	// month to close.
	Snapshot() bool

	// Fetch returns the upstream's raw records for the fund. A fund
	// unknown to the upstream is a valid empty result, not an error.
	Fetch(ctx context.Context, fund models.Fund, lookback Lookback) ([]models.RawRecord, error)
}

// TokenStore persists a bearer credential across process runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}
