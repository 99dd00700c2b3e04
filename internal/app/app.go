// Package app wires configuration, clients, storage and the sync
// service into one initialized core shared by all CLI subcommands.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/MatheusEger/fiisync/internal/clients/clubefii"
	"github.com/MatheusEger/fiisync/internal/clients/fundamentus"
	"github.com/MatheusEger/fiisync/internal/clients/plexa"
	"github.com/MatheusEger/fiisync/internal/common"
	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/services/sync"
	"github.com/MatheusEger/fiisync/internal/storage/sqlite"
)

// App holds the initialized clients and services. It is built once per
// invocation and torn down with Close.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.Store
	Plexa       *plexa.Client
	ClubeFII    *clubefii.Client
	Fundamentus *fundamentus.Client
}

// NewApp loads configuration and initializes every client and the
// store. configPath may be empty, in which case FIISYNC_CONFIG and
// then config/fiisync.toml are tried.
func NewApp(configPath string) (*App, error) {
	// Credentials and the persisted bearer token live in .env.
	// A missing file is fine; the environment may carry them directly.
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("FIISYNC_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join("config", "fiisync.toml")
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := sqlite.Open(config.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	tokens := common.NewEnvTokenStore(config.Plexa.TokenFile, "PLEXA_TOKEN")
	plexaClient := plexa.NewClient(
		plexa.Credentials{Email: config.Plexa.Email, Password: config.Plexa.Password},
		tokens,
		plexa.WithBaseURL(config.Plexa.BaseURL),
		plexa.WithLogger(logger),
		plexa.WithRateLimit(config.Plexa.RateLimit),
		plexa.WithTimeout(config.Plexa.GetTimeout()),
	)

	clubeClient := clubefii.NewClient(
		clubefii.WithBaseURL(config.ClubeFII.BaseURL),
		clubefii.WithLogger(logger),
		clubefii.WithRenderWait(config.ClubeFII.GetRenderWait()),
		clubefii.WithTimeout(config.ClubeFII.GetTimeout()),
	)

	fundamentusClient := fundamentus.NewClient(
		fundamentus.WithBaseURL(config.Fundamentus.BaseURL),
		fundamentus.WithLogger(logger),
		fundamentus.WithTimeout(config.Fundamentus.GetTimeout()),
	)

	logger.Info().
		Str("environment", config.Environment).
		Str("store", config.Store.Path).
		Msg("fiisync initialized")

	return &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Plexa:       plexaClient,
		ClubeFII:    clubeClient,
		Fundamentus: fundamentusClient,
	}, nil
}

// SyncService builds the orchestrator over the requested indicator
// sources. Source names follow the adapter names used in logs.
func (a *App) SyncService(sources ...string) (*sync.Service, error) {
	var adapters []interfaces.SourceAdapter
	for _, name := range sources {
		switch name {
		case "plexa":
			adapters = append(adapters, plexa.NewDividendAdapter(a.Plexa))
		case "clubefii":
			adapters = append(adapters, clubefii.NewAdapter(a.ClubeFII))
		case "fundamentus":
			adapters = append(adapters, fundamentus.NewCapRateAdapter(a.Fundamentus))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}

	return sync.NewService(a.Store, a.Logger,
		sync.WithAdapters(adapters...),
		sync.WithCatalogSource(a.Plexa),
		sync.WithQuoteSource(a.Plexa),
		sync.WithPropertySource(a.Fundamentus),
		sync.WithPacing(a.Config.Sync.GetPacing()),
		sync.WithLookback(interfaces.Lookback{
			Months: a.Config.Sync.LookbackMonths,
			Days:   a.Config.Sync.LookbackDays,
		}),
	), nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
