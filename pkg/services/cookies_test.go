package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/ytdlp"
)

// loginTool simulates a login: it finds the --cookies argument and writes a
// cookie jar there.
const loginTool = `while [ $# -gt 0 ]; do
  if [ "$1" = "--cookies" ]; then
    shift
    printf "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n" > "$1"
  fi
  shift
done
exit 0
`

func newTestCookieManager(t *testing.T, script string) *CookieManager {
	t.Helper()
	cfg := &config.Config{
		YtDlpPath:    writeFakeTool(t, script),
		CookiesDir:   t.TempDir(),
		CookieMaxAge: 48 * time.Hour,
	}
	log := logging.New("error", false, nil)
	c, err := NewCookieManager(cfg, ytdlp.NewRunner(cfg, log), log)
	if err != nil {
		t.Fatalf("NewCookieManager: %v", err)
	}
	return c
}

func TestLoginStoresCookieJar(t *testing.T) {
	c := newTestCookieManager(t, loginTool)

	if err := c.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !c.LoggedIn() {
		t.Fatal("LoggedIn = false after successful login")
	}

	args := c.AuthArgs(types.PlatformYouTube)
	if len(args) != 2 || args[0] != "--cookies" {
		t.Fatalf("AuthArgs = %v, want --cookies <file>", args)
	}
	if !strings.Contains(filepath.Base(args[1]), "yt_cookies_") {
		t.Errorf("cookie file %q must use the hashed naming scheme", args[1])
	}
	if strings.Contains(args[1], "user@example.com") {
		t.Errorf("cookie file name %q must not embed the username", args[1])
	}

	if got := c.AuthArgs(types.PlatformTikTok); got != nil {
		t.Errorf("AuthArgs(TikTok) = %v, want nil", got)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	c := newTestCookieManager(t, `echo "ERROR: Incorrect username or password" >&2
exit 1
`)

	err := c.Login(context.Background(), "user", "wrong")
	if err == nil {
		t.Fatal("Login succeeded, want failure")
	}
	if !strings.Contains(err.Error(), "Incorrect username or password") {
		t.Errorf("error = %q, want credential message", err)
	}
	if c.LoggedIn() {
		t.Error("LoggedIn = true after failed login")
	}
}

func TestLoginRejectsForeignCookieJar(t *testing.T) {
	// The tool exits 0 but writes cookies for a different site.
	c := newTestCookieManager(t, `while [ $# -gt 0 ]; do
  if [ "$1" = "--cookies" ]; then
    shift
    printf ".example.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n" > "$1"
  fi
  shift
done
exit 0
`)

	if err := c.Login(context.Background(), "user", "pass"); err == nil {
		t.Fatal("Login succeeded with invalid cookie data")
	}
}

func TestLogoutRemovesCookieFile(t *testing.T) {
	c := newTestCookieManager(t, loginTool)

	if err := c.Login(context.Background(), "user", "pass"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	file := c.AuthArgs(types.PlatformYouTube)[1]

	c.Logout()
	if c.LoggedIn() {
		t.Error("LoggedIn = true after logout")
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("cookie file still exists after logout")
	}
	if got := c.AuthArgs(types.PlatformYouTube); got != nil {
		t.Errorf("AuthArgs after logout = %v, want nil", got)
	}
}

func TestCleanupExpired(t *testing.T) {
	c := newTestCookieManager(t, loginTool)

	fresh := filepath.Join(c.cfg.CookiesDir, "yt_cookies_fresh.txt")
	stale := filepath.Join(c.cfg.CookiesDir, "yt_cookies_stale.txt")
	other := filepath.Join(c.cfg.CookiesDir, "unrelated.txt")
	for _, f := range []string{fresh, stale, other} {
		if err := os.WriteFile(f, []byte("jar"), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.Chtimes(other, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	c.CleanupExpired()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale cookie file survived cleanup")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh cookie file was removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("files without the cookie prefix must be left alone")
	}
}
