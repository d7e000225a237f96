package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/handlers"
	"github.com/cogentx/cogentx/internal/services/fetcher"
	"github.com/cogentx/cogentx/internal/services/llm"
	"github.com/cogentx/cogentx/internal/services/query"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Core services
	SessionStore    *sessions.Store
	ProviderFactory *llm.Factory
	QueryEngine     *query.Engine
	FetcherService  *fetcher.Service

	// HTTP handlers
	HealthHandler   *handlers.HealthHandler
	ConfigHandler   *handlers.ConfigHandler
	IngestHandler   *handlers.IngestHandler
	AskHandler      *handlers.AskHandler
	DatabaseHandler *handlers.DatabaseHandler
	SessionHandler  *handlers.SessionHandler
}

// New wires up services and handlers from the loaded configuration.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	prompts, err := query.LoadPrompts(cfg.Prompts.File)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	a.SessionStore = sessions.NewStore(cfg, logger)
	a.ProviderFactory = llm.NewFactory(&cfg.Providers, logger)
	a.QueryEngine = query.NewEngine(a.ProviderFactory, prompts, cfg.Retrieval, logger)

	a.FetcherService, err = fetcher.New(&cfg.Fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("creating fetcher: %w", err)
	}

	a.HealthHandler = handlers.NewHealthHandler(a.SessionStore, a.ProviderFactory, logger)
	a.ConfigHandler = handlers.NewConfigHandler(a.SessionStore, logger)
	a.IngestHandler = handlers.NewIngestHandler(a.SessionStore, a.QueryEngine, a.FetcherService, logger)
	a.AskHandler = handlers.NewAskHandler(a.SessionStore, a.QueryEngine, logger)
	a.DatabaseHandler = handlers.NewDatabaseHandler(a.SessionStore, logger)
	a.SessionHandler = handlers.NewSessionHandler(a.SessionStore, logger)

	return a, nil
}

// Start launches background work, currently the session expiry sweep.
func (a *App) Start() error {
	if err := a.SessionStore.StartSweeper(a.Config.Sessions.SweepSchedule, a.Config.Sessions.SweepInterval); err != nil {
		return fmt.Errorf("starting session sweeper: %w", err)
	}
	return nil
}

// Stop shuts background work down. Safe to call more than once.
func (a *App) Stop() {
	a.SessionStore.StopSweeper()
	a.Logger.Info().Msg("Application stopped")
}
