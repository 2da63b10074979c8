// Package ytdlp wraps invocation of the external extraction/download tool.
// The tool is an opaque subprocess: its stdout/stderr text streams are the
// only feedback channel, so this package also owns parsing that text into
// structured progress and classified faults.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/logging"
)

// Runner builds and launches tool subprocesses.
type Runner struct {
	path    string
	proxies []string
	log     *logging.Logger
}

// NewRunner creates a runner for the configured tool binary.
func NewRunner(cfg *config.Config, log *logging.Logger) *Runner {
	return &Runner{
		path:    cfg.YtDlpPath,
		proxies: cfg.GlobalProxies,
		log:     log.WithComponent("ytdlp"),
	}
}

// CommonArgs is the fixed argument prefix every invocation starts with.
func CommonArgs() []string {
	return []string{"--no-check-certificates", "--no-warnings"}
}

// withProxy appends the configured outbound proxy, if any.
func (r *Runner) withProxy(args []string) []string {
	if len(r.proxies) > 0 {
		args = append(args, "--proxy", r.proxies[0])
	}
	return args
}

// Output runs the tool to completion and returns its stdout. On failure the
// returned error carries the stderr text for classification.
func (r *Runner) Output(ctx context.Context, args []string) ([]byte, error) {
	args = r.withProxy(args)
	cmd := exec.CommandContext(ctx, r.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running tool", "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return nil, &RunError{
			Err:    err,
			Stderr: stderr.String(),
		}
	}
	return stdout.Bytes(), nil
}

// RunError wraps a failed tool invocation together with its stderr text.
type RunError struct {
	Err    error
	Stderr string
}

func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%v: %s", e.Err, firstLine(e.Stderr))
	}
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Proc is a started, long-running tool subprocess with its output pipes.
type Proc struct {
	cmd    *exec.Cmd
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// Start launches the tool without waiting for it. The caller owns the pipes
// and must call Wait.
func (r *Runner) Start(ctx context.Context, args []string) (*Proc, error) {
	args = r.withProxy(args)
	cmd := exec.CommandContext(ctx, r.path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	r.log.Debug("starting tool", "args", strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start tool: %w", err)
	}

	return &Proc{cmd: cmd, Stdout: stdout, Stderr: stderr}, nil
}

// Wait blocks until the subprocess exits and returns its exit error, if any.
func (p *Proc) Wait() error {
	return p.cmd.Wait()
}

// Kill forcibly terminates the subprocess.
func (p *Proc) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// ExitCode returns the subprocess exit code after Wait, or -1.
func (p *Proc) ExitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}
