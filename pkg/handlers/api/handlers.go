// Package api provides HTTP handlers for the download API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-fetch-go/pkg/appctx"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/middleware"
	"media-fetch-go/pkg/platform"
	"media-fetch-go/pkg/services"
	"media-fetch-go/pkg/types"
)

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/info", h.handleInfo)

	mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	mux.HandleFunc("POST /api/download", h.handleDownload)
	mux.HandleFunc("POST /api/download/cancel", h.handleCancel)
	mux.HandleFunc("GET /api/download/progress", h.handleProgress)
	mux.HandleFunc("GET /api/download/file/{id}", h.handleFile)

	if h.ctx.Cookies != nil {
		mux.HandleFunc("POST /api/auth/login", h.handleLogin)
		mux.HandleFunc("GET /api/auth/status", h.handleAuthStatus)
		mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	}
}

// handleInfo returns server status as JSON.
func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "running",
		"version":         "1.0.0",
		"activeDownloads": h.ctx.Downloads.Active(),
		"platforms":       platform.SupportedList(),
	})
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// handleAnalyze inspects a URL and returns its downloadable formats.
func (h *Handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest,
			"Invalid URL format. Please enter a valid URL from a supported platform.")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.writeFailure(w, http.StatusBadRequest,
			"URL cannot be empty. Please enter a valid URL.")
		return
	}
	if !platform.Supported(req.URL) {
		h.writeFailure(w, http.StatusBadRequest,
			"Unsupported platform. Please enter a URL from "+platform.SupportedList()+".")
		return
	}

	ctx, cancel := contextWithTimeout(r, h.ctx.Config.AnalyzeTimeout)
	defer cancel()

	desc, err := h.ctx.Analyzer.Analyze(ctx, req.URL)
	if err != nil {
		h.log.Warn("analysis failed", "url", req.URL, "error", err)
		h.writeFailure(w, statusForError(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*types.MediaDescriptor
	}{true, desc})
}

type downloadRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

// handleDownload starts a download session and binds it to the caller.
func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest,
			"Invalid download request. URL and format are required.")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Format) == "" {
		h.writeFailure(w, http.StatusBadRequest,
			"Invalid download request. URL and format are required.")
		return
	}
	if !platform.Supported(req.URL) {
		h.writeFailure(w, http.StatusBadRequest,
			"Unsupported platform. Please enter a URL from "+platform.SupportedList()+".")
		return
	}

	token := middleware.Token(r)

	// One in-flight download per client. A stale binding to a finished or
	// evicted session does not count.
	if prev, ok := h.ctx.Sessions.Lookup(token); ok {
		if snap, live := h.ctx.Downloads.Snapshot(prev); live && !snap.Status().IsTerminal() {
			h.writeFailure(w, http.StatusConflict,
				"A download is already in progress. Cancel it or wait for it to finish.")
			return
		}
	}

	id, err := h.ctx.Downloads.Start(req.URL, req.Format, req.Quality)
	if err != nil {
		h.log.Error("failed to start download", "url", req.URL, "error", err)
		h.writeFailure(w, statusForError(err), err.Error())
		return
	}
	h.ctx.Sessions.Bind(token, id)

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":    true,
		"message":    "Download started",
		"downloadId": id,
	})
}

// handleCancel stops the caller's in-flight download.
func (h *Handlers) handleCancel(w http.ResponseWriter, r *http.Request) {
	token := middleware.Token(r)

	id, ok := h.ctx.Sessions.Lookup(token)
	if !ok {
		h.writeFailure(w, http.StatusNotFound, "No download session found")
		return
	}

	snap, _ := h.ctx.Downloads.Snapshot(id)

	if err := h.ctx.Downloads.Cancel(id); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			h.writeFailure(w, http.StatusNotFound, "No active download found")
			return
		}
		h.writeFailure(w, http.StatusInternalServerError, "Failed to cancel download")
		return
	}
	h.ctx.Sessions.Unbind(token)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Download cancelled successfully",
		"filename": snap.Filename,
	})
}

// handleProgress streams the caller's download progress as server-sent
// events until the session turns terminal or the connection cap is reached.
func (h *Handlers) handleProgress(w http.ResponseWriter, r *http.Request) {
	token := middleware.Token(r)

	id, ok := h.ctx.Sessions.Lookup(token)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"message": "No download session found", "error": true,
		})
		return
	}
	if _, live := h.ctx.Downloads.Snapshot(id); !live {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"message": "No active download found", "error": true,
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeFailure(w, http.StatusInternalServerError,
			"Failed to setup download progress tracking")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	cfg := h.ctx.Config
	ticker := time.NewTicker(cfg.ProgressInterval)
	defer ticker.Stop()
	maxLifetime := time.NewTimer(cfg.ProgressMaxLifetime)
	defer maxLifetime.Stop()

	// terminal emits the final event and holds the stream open briefly so
	// slow readers still receive it.
	terminal := func(v interface{}) {
		writeEvent(w, flusher, v)
		select {
		case <-r.Context().Done():
		case <-time.After(cfg.ProgressGraceDelay):
		}
	}

	for {
		snap, live := h.ctx.Downloads.Snapshot(id)
		if !live {
			terminal(map[string]interface{}{
				"error":    true,
				"message":  "Error tracking download progress",
				"progress": 0,
			})
			return
		}

		if snap.Error {
			terminal(map[string]interface{}{
				"error":    true,
				"message":  snap.Message,
				"progress": snap.Progress,
			})
			return
		}

		writeEvent(w, flusher, snap)

		if snap.Cancelled || snap.Progress >= 100 {
			select {
			case <-r.Context().Done():
			case <-time.After(cfg.ProgressGraceDelay):
			}
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-maxLifetime.C:
			return
		case <-ticker.C:
		}
	}
}

// handleFile serves the finished download to its owner, then schedules the
// file for removal.
func (h *Handlers) handleFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	token := middleware.Token(r)

	// Ownership is required; foreign ids look identical to unknown ones.
	if !h.ctx.Sessions.Owns(token, id) {
		h.writeError(w, http.StatusNotFound, "Download not found")
		return
	}
	snap, live := h.ctx.Downloads.Snapshot(id)
	if !live {
		h.writeError(w, http.StatusNotFound, "Download not found")
		return
	}

	switch snap.Status() {
	case types.SessionStatusRunning:
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"inProgress": true,
			"progress":   snap.Progress,
		})
		return
	case types.SessionStatusFailed:
		h.writeFailure(w, http.StatusInternalServerError, snap.Message)
		return
	case types.SessionStatusCancelled:
		h.writeError(w, http.StatusNotFound, "Download was cancelled")
		return
	}

	path, ok := h.ctx.Downloads.FilePath(id)
	if !ok || path == "" {
		h.writeError(w, http.StatusNotFound, "File not found on server")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "File not found on server")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))

	written, err := io.Copy(w, file)
	if err != nil || written != info.Size() {
		// Interrupted delivery: keep the file so the client can retry.
		h.log.Warn("file delivery interrupted", "id", id, "written", written, "error", err)
		return
	}

	h.ctx.Downloads.DeleteFileAfter(id, h.ctx.Config.FileGraceDelay)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin authenticates platform credentials through the tool.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Username == "" || req.Password == "" {
		h.writeFailure(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if err := h.ctx.Cookies.Login(r.Context(), req.Username, req.Password); err != nil {
		h.writeFailure(w, http.StatusUnauthorized, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully authenticated",
	})
}

// handleAuthStatus reports whether stored cookies are present (and, when
// asked, still valid).
func (h *Handlers) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	authenticated := h.ctx.Cookies.LoggedIn()
	resp := map[string]interface{}{"authenticated": authenticated}

	if authenticated && r.URL.Query().Get("validate") == "true" {
		resp["valid"] = h.ctx.Cookies.Validate(r.Context())
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// handleLogout drops the stored cookies.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.ctx.Cookies.Logout()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Helper methods

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure writes the {success: false, message} shape the client's
// error surfaces expect.
func (h *Handlers) writeFailure(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// writeEvent writes one SSE data frame.
func writeEvent(w io.Writer, flusher http.Flusher, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// statusForError maps classified faults to HTTP status codes; anything
// unclassified is a server error.
func statusForError(err error) int {
	var fault *types.Fault
	if errors.As(err, &fault) {
		return fault.Class.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), d)
}
