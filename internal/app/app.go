// Package app provides the main application setup and dependency injection.
package app

import (
	"time"

	"media-fetch-go/pkg/appctx"
	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/extract"
	"media-fetch-go/pkg/handlers/api"
	"media-fetch-go/pkg/httpclient"
	"media-fetch-go/pkg/interfaces"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/server"
	"media-fetch-go/pkg/services"
	"media-fetch-go/pkg/session"
	"media-fetch-go/pkg/urlutil"
	"media-fetch-go/pkg/ytdlp"
)

// cookieCleanupInterval is how often expired cookie jars are swept.
const cookieCleanupInterval = time.Hour

// App is the main application container.
type App struct {
	Ctx       *appctx.Context
	Server    *server.Server
	Downloads *services.DownloadManager

	cleanupStop chan struct{}
}

// New creates and initializes the application.
func New() (*App, error) {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	log.Info("initializing media-fetch", "port", cfg.Port, "log_level", cfg.LogLevel)

	// Create application context
	ctx := appctx.New(cfg, log)

	// HTTP client, used to expand shortened links before analysis
	httpClient := httpclient.New(cfg, log)
	expander := urlutil.NewExpander(httpClient, log)

	// Subprocess runner for the download tool
	runner := ytdlp.NewRunner(cfg, log)

	// Cookie manager is optional; without it, downloads run unauthenticated
	var auth interfaces.AuthProvider
	cookies, err := services.NewCookieManager(cfg, runner, log)
	if err != nil {
		log.Warn("cookie store unavailable, running without authentication", "error", err)
	} else {
		auth = cookies
		ctx.WithCookies(cookies)
	}

	// Analyzer with per-platform extraction strategies
	analyzer := extract.NewAnalyzer(runner, extract.DefaultRegistry(), expander, auth, log)
	ctx.WithAnalyzer(analyzer)

	// Download session manager
	downloads, err := services.NewDownloadManager(cfg, runner, auth, log)
	if err != nil {
		return nil, err
	}
	ctx.WithDownloads(downloads)

	// Client token to download session bindings
	sessions := session.NewStore()
	ctx.WithSessions(sessions)

	// Create HTTP server
	srv := server.New(cfg, sessions, log)

	// Create API handlers
	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	a := &App{
		Ctx:         ctx,
		Server:      srv,
		Downloads:   downloads,
		cleanupStop: make(chan struct{}),
	}

	if cookies != nil {
		go a.sweepCookies(cookies)
	}

	return a, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.Ctx.Log.Info("starting media-fetch server", "port", a.Ctx.Config.Port)
	return a.Server.Start()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() {
	a.Ctx.Log.Info("shutting down application")

	close(a.cleanupStop)

	if a.Downloads != nil {
		a.Downloads.Close()
	}
}

// sweepCookies periodically drops cookie jars past their maximum age.
func (a *App) sweepCookies(cookies *services.CookieManager) {
	ticker := time.NewTicker(cookieCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.cleanupStop:
			return
		case <-ticker.C:
			cookies.CleanupExpired()
		}
	}
}
