// Package services contains the download session manager and supporting
// services around the external tool.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/extract"
	"media-fetch-go/pkg/interfaces"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/platform"
	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/ytdlp"
)

// ErrSessionNotFound is returned for unknown or already evicted sessions.
var ErrSessionNotFound = errors.New("download session not found")

// DownloadManager owns the lifecycle of download subprocesses: spawning,
// progress tracking, cancellation, and eviction of finished sessions.
type DownloadManager struct {
	cfg    *config.Config
	runner *ytdlp.Runner
	auth   interfaces.AuthProvider
	log    *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*downloadState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type downloadState struct {
	mu         sync.Mutex
	id         string
	url        string
	platform   types.Platform
	shortForm  bool
	snapshot   types.ProgressSnapshot
	startTime  time.Time
	lastUpdate time.Time
	filePath   string
	proc       *ytdlp.Proc
	procCancel context.CancelFunc
	done       chan struct{} // Closed when the subprocess finished
	stdoutDone chan struct{} // Closed when the stdout parser drained the pipe
	cancelled  bool
	evict      *time.Timer
}

// NewDownloadManager creates a download manager. auth may be nil.
func NewDownloadManager(cfg *config.Config, runner *ytdlp.Runner, auth interfaces.AuthProvider, log *logging.Logger) (*DownloadManager, error) {
	if err := os.MkdirAll(cfg.DownloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &DownloadManager{
		cfg:      cfg,
		runner:   runner,
		auth:     auth,
		log:      log.WithComponent("download"),
		sessions: make(map[string]*downloadState),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start launches a download session for the chosen format and returns the
// session id. The session is registered and observable before this returns.
func (m *DownloadManager) Start(rawURL, formatID, quality string) (string, error) {
	now := time.Now()
	id := fmt.Sprintf("download-%d", now.UnixNano())
	p := platform.FromURL(rawURL)
	shortForm := platform.IsShortForm(rawURL)

	outputTemplate := filepath.Join(m.cfg.DownloadsDir,
		fmt.Sprintf("%%(title)s-%d.%%(ext)s", now.UnixMilli()))

	initialMessage := "Initializing download..."
	if shortForm {
		initialMessage = "Starting short video download (these typically complete quickly)..."
	}

	state := &downloadState{
		id:        id,
		url:       rawURL,
		platform:  p,
		shortForm: shortForm,
		snapshot: types.ProgressSnapshot{
			Progress:      0,
			Filename:      initialMessage,
			RemainingTime: "Calculating...",
			Platform:      p,
		},
		startTime:  now,
		lastUpdate: now,
		done:       make(chan struct{}),
		stdoutDone: make(chan struct{}),
	}

	// Register before spawning so progress is observable immediately, even
	// for downloads that finish faster than the first poll.
	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()

	args := extract.DownloadArgs(rawURL, formatID, p, outputTemplate)
	if m.auth != nil {
		args = append(args[:len(args)-1], append(m.auth.AuthArgs(p), rawURL)...)
	}

	procCtx, procCancel := context.WithCancel(m.ctx)
	proc, err := m.runner.Start(procCtx, args)
	if err != nil {
		procCancel()
		m.removeSession(id)
		return "", types.NewFault(types.FaultGeneric, "Failed to start download. Please try again.")
	}

	state.mu.Lock()
	state.proc = proc
	state.procCancel = procCancel
	state.mu.Unlock()

	m.log.Info("download started", "id", id, "platform", p, "format", formatID, "quality", quality)

	m.wg.Add(1)
	go m.consumeStdout(state)
	m.wg.Add(1)
	go m.watchStall(state)
	m.wg.Add(1)
	go m.monitor(state)

	return id, nil
}

// consumeStdout parses tool progress output into the session snapshot.
func (m *DownloadManager) consumeStdout(state *downloadState) {
	defer m.wg.Done()
	defer close(state.stdoutDone)

	parser := ytdlp.NewParser()
	buf := make([]byte, 4096)
	for {
		n, err := state.proc.Stdout.Read(buf)
		if n > 0 {
			m.applyUpdate(state, parser.Feed(string(buf[:n])))
		}
		if err != nil {
			m.applyUpdate(state, parser.Flush())
			return
		}
	}
}

// applyUpdate merges one parsed update into the snapshot. Absent fields keep
// their previous value.
func (m *DownloadManager) applyUpdate(state *downloadState, u ytdlp.Update) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.lastUpdate = time.Now()

	if u.Destination != nil {
		state.filePath = *u.Destination
		state.snapshot.Filename = filepath.Base(*u.Destination)
	}
	// Stall interpolation may have pushed the bar past a late real report;
	// displayed progress only ever moves forward.
	if u.Percent != nil && *u.Percent > state.snapshot.Progress {
		state.snapshot.Progress = *u.Percent
	}
	if u.DownloadedBytes != nil {
		state.snapshot.DownloadedSize = *u.DownloadedBytes
	}
	if u.TotalBytes != nil {
		state.snapshot.TotalSize = *u.TotalBytes
	}
	if u.ETA != nil {
		state.snapshot.RemainingTime = *u.ETA
	}
}

// watchStall interpolates progress for short-form downloads when the tool
// goes quiet. Small files often finish before the first progress line, which
// otherwise leaves the bar stuck at zero.
func (m *DownloadManager) watchStall(state *downloadState) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-state.done:
			return
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}

		state.mu.Lock()
		stalled := time.Since(state.lastUpdate) > m.cfg.StallThreshold
		terminal := state.snapshot.Status().IsTerminal()

		if stalled && !terminal && state.shortForm {
			elapsed := time.Since(state.startTime).Seconds()
			estimated := platform.ExpectedDuration(state.url)
			simulated := elapsed / estimated * 100
			if simulated > 95 {
				simulated = 95
			}
			// The bar only ever moves forward; real tool updates that are
			// further along must not be overwritten either.
			if simulated > state.snapshot.Progress {
				state.snapshot.Progress = simulated
				remaining := int(estimated - elapsed)
				if remaining < 1 {
					remaining = 1
				}
				state.snapshot.RemainingTime = fmt.Sprintf("~%ds", remaining)
			}
		}
		state.mu.Unlock()
	}
}

// monitor waits for the subprocess and settles the terminal snapshot.
func (m *DownloadManager) monitor(state *downloadState) {
	defer m.wg.Done()
	defer close(state.done)

	// Collect stderr for fault classification. Known fatal substrings kill
	// the process right away instead of letting it spin.
	var stderrText string
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		buf := make([]byte, 4096)
		for {
			n, err := state.proc.Stderr.Read(buf)
			if n > 0 {
				chunk := string(buf[:n])
				stderrText += chunk
				if len(stderrText) > 16384 {
					stderrText = stderrText[len(stderrText)-16384:]
				}
				if ytdlp.IsFatal(chunk) {
					m.log.Warn("fatal tool output, killing download", "id", state.id)
					state.proc.Kill()
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// Wait closes the pipes, so both readers must drain to EOF first or the
	// final output chunks of a fast download are lost mid-parse.
	<-state.stdoutDone
	<-stderrDone
	err := state.proc.Wait()

	state.mu.Lock()
	elapsed := time.Since(state.startTime)

	switch {
	case state.cancelled:
		state.snapshot.Completed = true
		state.snapshot.Cancelled = true
		state.snapshot.Message = "Download cancelled"
		m.log.Info("download cancelled", "id", state.id)

	case err != nil:
		fault := ytdlp.ClassifyExit(stderrText, state.proc.ExitCode())
		state.snapshot.Completed = true
		state.snapshot.Error = true
		state.snapshot.Message = fault.Message
		m.log.Warn("download failed", "id", state.id,
			"class", fault.Class, "exit_code", state.proc.ExitCode())

	default:
		if fault := m.verifyOutput(state.filePath); fault != nil {
			state.snapshot.Completed = true
			state.snapshot.Error = true
			state.snapshot.Message = fault.Message
			m.log.Warn("download produced no usable file", "id", state.id, "path", state.filePath)
		} else {
			state.snapshot.Progress = 100
			state.snapshot.Completed = true
			state.snapshot.Success = true
			state.snapshot.RemainingTime = "Complete"
			state.snapshot.DownloadTime = fmt.Sprintf("%ds", int(elapsed.Seconds()))
			m.log.Info("download completed", "id", state.id,
				"file", state.snapshot.Filename, "duration", elapsed)
		}
	}
	state.mu.Unlock()

	m.scheduleEviction(state)
}

// verifyOutput checks that the tool actually produced a non-empty file.
// Exit code 0 with a zero-byte file happens with some protected formats.
func (m *DownloadManager) verifyOutput(path string) *types.Fault {
	if path == "" {
		return types.NewFault(types.FaultGeneric,
			"Download finished but no output file was produced. Please try a different format.")
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return types.NewFault(types.FaultGeneric,
			"Download completed but file is empty. Please try a different format.")
	}
	return nil
}

// scheduleEviction removes the terminal session after the retention window.
func (m *DownloadManager) scheduleEviction(state *downloadState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.evict != nil {
		return
	}
	state.evict = time.AfterFunc(m.cfg.SessionRetention, func() {
		m.removeSession(state.id)
		m.log.Debug("session evicted", "id", state.id)
	})
}

func (m *DownloadManager) removeSession(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Snapshot returns a copy of the session's progress.
func (m *DownloadManager) Snapshot(id string) (types.ProgressSnapshot, bool) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return types.ProgressSnapshot{}, false
	}

	state.mu.Lock()
	snap := state.snapshot
	state.mu.Unlock()
	return snap, true
}

// FilePath returns the produced file path for a completed session.
func (m *DownloadManager) FilePath(id string) (string, bool) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.snapshot.Success {
		return "", false
	}
	return state.filePath, true
}

// Cancel stops a running session and removes its partial file. Cancelling an
// unknown, evicted, or already terminal session returns ErrSessionNotFound,
// so repeated cancels are safe.
func (m *DownloadManager) Cancel(id string) error {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	state.mu.Lock()
	if state.snapshot.Status().IsTerminal() {
		state.mu.Unlock()
		return ErrSessionNotFound
	}
	state.cancelled = true
	filePath := state.filePath
	procCancel := state.procCancel
	done := state.done
	state.mu.Unlock()

	m.log.Info("cancelling download", "id", id)

	if procCancel != nil {
		procCancel()
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		m.log.Warn("cancelled process did not exit in time", "id", id)
	}

	if filePath != "" {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			m.log.Warn("failed to remove partial file", "path", filePath, "error", err)
		}
	}

	return nil
}

// DeleteFileAfter removes the session's file after the grace delay. Called
// once the file has been fully delivered to the client.
func (m *DownloadManager) DeleteFileAfter(id string, delay time.Duration) {
	path, ok := m.FilePath(id)
	if !ok || path == "" {
		return
	}
	time.AfterFunc(delay, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warn("failed to remove delivered file", "path", path, "error", err)
		} else {
			m.log.Debug("delivered file removed", "id", id, "path", path)
		}
	})
}

// Active returns the number of live sessions.
func (m *DownloadManager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close kills all live subprocesses and waits for monitors to settle.
func (m *DownloadManager) Close() error {
	m.cancel()

	m.mu.RLock()
	states := make([]*downloadState, 0, len(m.sessions))
	for _, s := range m.sessions {
		states = append(states, s)
	}
	m.mu.RUnlock()

	for _, s := range states {
		s.mu.Lock()
		if s.evict != nil {
			s.evict.Stop()
		}
		s.mu.Unlock()
		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
		}
	}

	m.wg.Wait()
	return nil
}
