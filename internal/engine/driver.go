// ABOUTME: Drives the external reasoning engine as a subprocess.
// ABOUTME: Streams its native output into internal events and recovers the final reply.

package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrAgentFailure covers every way the engine can fail a turn: non-zero
// exit, timeout, malformed stream, or a stream with no completed reply.
// The relay never retries the engine automatically — it may have partially
// mutated files as a side effect, so retries are a human decision.
var ErrAgentFailure = errors.New("reasoning engine failure")

// maxLineBytes bounds a single stream line. Engine tool results can be
// large; 10 MiB is far beyond anything observed.
const maxLineBytes = 10 * 1024 * 1024

// Options is the engine invocation configuration. Model, thinking depth
// and the tool allowlist are opaque passthrough values.
type Options struct {
	Provider      string
	Binary        string
	Model         string
	ThinkingDepth string
	ToolAllowlist []string
	Timeout       time.Duration
}

// Turn is one completed engine invocation.
type Turn struct {
	Reply  string  // extracted final reply, untruncated
	Events []Event // the full translated event stream for this turn
}

// Driver runs the reasoning engine once per triggering event.
type Driver struct {
	opts     Options
	stateDir string
	logger   *slog.Logger
	now      func() time.Time
}

// NewDriver creates a driver rooted at the state dir; log paths passed to
// Run are resolved against it.
func NewDriver(opts Options, stateDir string, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		opts:     opts,
		stateDir: stateDir,
		logger:   logger.With("component", "engine"),
		now:      time.Now,
	}
}

// Run invokes the engine with input as the opening or continuing message
// and logPath as the conversation history location. The human input and
// every translated engine event are appended to the log in emission order.
// All failure modes surface as ErrAgentFailure.
func (d *Driver) Run(ctx context.Context, input, logPath string, isNew bool) (*Turn, error) {
	absLog := filepath.Join(d.stateDir, logPath)

	// The human input opens the turn in the log before the engine runs,
	// so even a failed turn leaves a record of what was asked.
	if err := appendEvents(absLog, []Event{HumanEvent(input, d.now())}); err != nil {
		return nil, fmt.Errorf("recording input: %w", err)
	}

	runCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, d.opts.Binary, d.buildArgs(absLog, isNew)...)
	cmd.Stdin = strings.NewReader(input)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: opening engine stdout: %v", ErrAgentFailure, err)
	}

	d.logger.Info("engine starting",
		"provider", d.opts.Provider,
		"model", d.opts.Model,
		"resume", !isNew,
		"log_path", logPath)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting engine: %v", ErrAgentFailure, err)
	}

	events, streamErr := d.consumeStream(stdout, absLog)
	waitErr := cmd.Wait()

	switch {
	case runCtx.Err() != nil:
		return nil, fmt.Errorf("%w: engine timed out: %v", ErrAgentFailure, runCtx.Err())
	case streamErr != nil:
		return nil, fmt.Errorf("%w: %v", ErrAgentFailure, streamErr)
	case waitErr != nil:
		return nil, fmt.Errorf("%w: engine exited: %v (stderr: %s)",
			ErrAgentFailure, waitErr, tail(stderr.String(), 512))
	}

	reply, err := FinalReply(events)
	if err != nil {
		return nil, err
	}

	d.logger.Info("engine finished",
		"events", len(events),
		"reply_bytes", len(reply))

	return &Turn{Reply: reply, Events: events}, nil
}

// consumeStream reads the engine's stdout line by line, translating each
// native line into internal events and appending them to the conversation
// log as they arrive.
func (d *Driver) consumeStream(r io.Reader, absLog string) ([]Event, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		decoded, err := decodeLine(line, d.now())
		if err != nil {
			return nil, err
		}
		if len(decoded) == 0 {
			continue
		}

		if err := appendEvents(absLog, decoded); err != nil {
			return nil, err
		}
		events = append(events, decoded...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading engine stream: %w", err)
	}
	return events, nil
}

// buildArgs assembles the engine command line for the configured provider.
// The claude provider gets the CLI's streaming flags; the exec provider is
// handed the same minimal contract (mode flag, log path) and nothing else.
func (d *Driver) buildArgs(absLog string, isNew bool) []string {
	var args []string

	if d.opts.Provider == "claude" {
		args = append(args, "--print", "--output-format", "stream-json", "--verbose")
	}

	args = append(args, "--log", absLog)
	if !isNew {
		args = append(args, "--resume")
	}
	if d.opts.Model != "" {
		args = append(args, "--model", d.opts.Model)
	}
	if d.opts.ThinkingDepth != "" {
		args = append(args, "--thinking", d.opts.ThinkingDepth)
	}
	if len(d.opts.ToolAllowlist) > 0 {
		args = append(args, "--allowed-tools", strings.Join(d.opts.ToolAllowlist, ","))
	}

	return args
}

// tail returns the last n bytes of s for error messages.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
