// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"fmt"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/interfaces"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/services"
	"media-fetch-go/pkg/session"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config    *config.Config
	Log       *logging.Logger
	Analyzer  interfaces.Analyzer
	Downloads interfaces.Downloader
	Cookies   *services.CookieManager
	Sessions  *session.Store
	BaseURL   string
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	return &Context{
		Config:  cfg,
		Log:     log,
		BaseURL: baseURL,
	}
}

// WithAnalyzer sets the analyzer.
func (c *Context) WithAnalyzer(a interfaces.Analyzer) *Context {
	c.Analyzer = a
	return c
}

// WithDownloads sets the download manager.
func (c *Context) WithDownloads(d interfaces.Downloader) *Context {
	c.Downloads = d
	return c
}

// WithCookies sets the cookie manager.
func (c *Context) WithCookies(cm *services.CookieManager) *Context {
	c.Cookies = cm
	return c
}

// WithSessions sets the session store.
func (c *Context) WithSessions(s *session.Store) *Context {
	c.Sessions = s
	return c
}
