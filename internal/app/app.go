package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/theflapjack/fa-report/internal/auth"
	"github.com/theflapjack/fa-report/internal/cache"
	"github.com/theflapjack/fa-report/internal/client"
	"github.com/theflapjack/fa-report/internal/common"
	"github.com/theflapjack/fa-report/internal/config"
	"github.com/theflapjack/fa-report/internal/handlers"
	"github.com/theflapjack/fa-report/internal/mcp"
	"github.com/theflapjack/fa-report/internal/report"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Tokens  *auth.TokenManager
	Reports *report.Service

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	ReadyHandler   *handlers.ReadyHandler
	VersionHandler *handlers.VersionHandler
	ReportHandler  *handlers.ReportHandler
	CacheHandler   *handlers.CacheHandler
	MCPHandler     *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a, err := NewCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Auth.Enabled() {
		logger.Warn().Msg("inbound basic auth is disabled, /report and /mcp are open to anyone who can reach the server")
	}

	a.initHandlers()

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// NewCore builds the token manager and report service without any HTTP
// handlers, for callers such as the CLI.
func NewCore(cfg *config.Config, logger *common.Logger) (*App, error) {
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	timeout := cfg.FA.GetTimeout()
	idp := auth.NewOAuthClient(cfg.FA.IssuerURL, cfg.FA.ClientID, timeout)
	a.Tokens = auth.NewTokenManager(idp, auth.NewTokenStore(), logger)

	gql := client.NewGraphQLClient(cfg.FA.GraphQLURL, timeout, logger)
	txCache := cache.New[[]report.FlatTransaction](cfg.Cache.GetTTL(), cfg.Cache.MaxEntries)
	a.Reports = report.NewService(a.Tokens, gql, cfg.FA.Username, cfg.FA.Password, txCache, logger)

	logger.Debug().
		Str("issuer_url", cfg.FA.IssuerURL).
		Str("graphql_url", cfg.FA.GraphQLURL).
		Dur("timeout", timeout).
		Bool("cache_enabled", txCache.Enabled()).
		Msg("report pipeline initialized")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ReadyHandler = handlers.NewReadyHandler(a.Logger, a.checkUpstream)
	a.ReportHandler = handlers.NewReportHandler(a.Logger, a.Reports)
	a.CacheHandler = handlers.NewCacheHandler(a.Logger, a.Reports)
	a.MCPHandler = mcp.NewHandler(a.Reports, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// checkUpstream succeeds when a data API token can be obtained.
func (a *App) checkUpstream(ctx context.Context) error {
	_, err := a.Tokens.ValidAccessToken(ctx, a.Config.FA.Username, a.Config.FA.Password)
	return err
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
