package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/ytdlp"
)

// authFaultPatterns maps tool login failures to user-facing messages.
var authFaultPatterns = []struct {
	pattern string
	message string
}{
	{"Incorrect username or password", "Incorrect username or password"},
	{"This account has been", "This account has been suspended"},
	{"Please sign in", "Login required"},
	{"verify it", "Additional verification required. Please log in through a browser first"},
	{"429", "Too many requests. Please try again later"},
}

// CookieManager passes platform credentials through to the tool and keeps
// the resulting cookie files. Credentials are never stored; only the tool's
// cookie jar is, named by a hash of the username.
type CookieManager struct {
	cfg    *config.Config
	runner *ytdlp.Runner
	log    *logging.Logger

	mu         sync.RWMutex
	activeFile string // cookie file used for subsequent downloads
	username   string
}

// NewCookieManager creates a cookie manager.
func NewCookieManager(cfg *config.Config, runner *ytdlp.Runner, log *logging.Logger) (*CookieManager, error) {
	if err := os.MkdirAll(cfg.CookiesDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cookies directory: %w", err)
	}
	return &CookieManager{
		cfg:    cfg,
		runner: runner,
		log:    log.WithComponent("cookies"),
	}, nil
}

// cookieFileName derives a stable per-user file name without embedding the
// username itself.
func (c *CookieManager) cookieFileName(username string) string {
	sum := sha256.Sum256([]byte(username))
	hash := hex.EncodeToString(sum[:])
	return filepath.Join(c.cfg.CookiesDir, "yt_cookies_"+hash[:10]+".txt")
}

// Login authenticates against YouTube through the tool and stores the cookie
// jar on success.
func (c *CookieManager) Login(ctx context.Context, username, password string) error {
	cookieFile := c.cookieFileName(username)

	args := append(ytdlp.CommonArgs(),
		"--username", username,
		"--password", password,
		"--cookies", cookieFile,
		"--skip-download",
		"https://www.youtube.com/feed/subscriptions",
	)

	c.log.Info("starting authentication")
	if _, err := c.runner.Output(ctx, args); err != nil {
		return classifyAuthError(err)
	}

	data, err := os.ReadFile(cookieFile)
	if err != nil {
		return errors.New("Authentication failed: Cookie file not created")
	}
	if !strings.Contains(string(data), "youtube.com") {
		return errors.New("Authentication failed: Invalid cookie data")
	}

	c.mu.Lock()
	c.activeFile = cookieFile
	c.username = username
	c.mu.Unlock()

	c.log.Info("authentication successful")
	return nil
}

func classifyAuthError(err error) error {
	var runErr *ytdlp.RunError
	if errors.As(err, &runErr) {
		for _, p := range authFaultPatterns {
			if strings.Contains(runErr.Stderr, p.pattern) {
				return errors.New("Authentication failed: " + p.message)
			}
		}
	}
	return errors.New("Authentication failed: Unknown authentication error")
}

// Validate probes whether the stored cookies still work.
func (c *CookieManager) Validate(ctx context.Context) bool {
	c.mu.RLock()
	cookieFile := c.activeFile
	c.mu.RUnlock()

	if cookieFile == "" {
		return false
	}
	if _, err := os.Stat(cookieFile); err != nil {
		return false
	}

	args := []string{
		"--cookies", cookieFile,
		"--skip-download",
		"--print", "title",
		"https://www.youtube.com/feed/library",
	}

	out, err := c.runner.Output(ctx, args)
	if err != nil || len(strings.TrimSpace(string(out))) == 0 {
		c.log.Debug("cookie validation failed", "error", err)
		return false
	}
	return true
}

// LoggedIn reports whether a cookie jar is active.
func (c *CookieManager) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeFile != ""
}

// Logout drops the active cookie jar and deletes its file.
func (c *CookieManager) Logout() {
	c.mu.Lock()
	file := c.activeFile
	c.activeFile = ""
	c.username = ""
	c.mu.Unlock()

	if file != "" {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			c.log.Warn("failed to remove cookie file", "path", file, "error", err)
		}
	}
}

// AuthArgs returns the tool arguments carrying the active cookie jar for
// YouTube. Other platforms get nothing.
func (c *CookieManager) AuthArgs(p types.Platform) []string {
	if p != types.PlatformYouTube {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.activeFile == "" {
		return nil
	}
	if _, err := os.Stat(c.activeFile); err != nil {
		return nil
	}
	return []string{"--cookies", c.activeFile}
}

// CleanupExpired removes cookie files older than the configured maximum age.
func (c *CookieManager) CleanupExpired() {
	entries, err := os.ReadDir(c.cfg.CookiesDir)
	if err != nil {
		c.log.Warn("failed to read cookies directory", "error", err)
		return
	}

	cutoff := time.Now().Add(-c.cfg.CookieMaxAge)
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "yt_cookies_") {
			continue
		}
		path := filepath.Join(c.cfg.CookiesDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				c.log.Warn("failed to remove expired cookie file", "path", path, "error", err)
				continue
			}
			c.log.Info("removed expired cookie file", "file", entry.Name())

			c.mu.Lock()
			if c.activeFile == path {
				c.activeFile = ""
				c.username = ""
			}
			c.mu.Unlock()
		}
	}
}
