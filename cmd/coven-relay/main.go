// ABOUTME: Entry point for coven-relay event processing
// ABOUTME: One invocation handles one triggering event end to end

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-relay/internal/config"
	"github.com/2389/coven-relay/internal/engine"
	"github.com/2389/coven-relay/internal/gate"
	"github.com/2389/coven-relay/internal/platform"
	"github.com/2389/coven-relay/internal/relay"
	"github.com/2389/coven-relay/internal/session"
	"github.com/2389/coven-relay/internal/transcript"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                          _
  ___ _____   _____ _ __        _ __ ___| | __ _ _   _
 / __/ _ \ \ / / _ \ '_ \ _____| '__/ _ \ |/ _' | | | |
| (_| (_) \ V /  __/ | | |_____| | |  __/ | (_| | |_| |
 \___\___/ \_/ \___|_| |_|     |_|  \___|_|\__,_|\__, |
                                                 |___/
`

// getConfigPath returns the path to the relay config file.
// Priority: COVEN_RELAY_CONFIG env var > XDG_CONFIG_HOME/coven/relay.yaml > ~/.config/coven/relay.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_RELAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "relay.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "relay.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coven-relay <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  run [--event FILE]      Process one triggering event (default: stdin)")
		fmt.Println("  check                   Evaluate the enable gate and print the decision")
		fmt.Println("  transcript <thread-id>  Render a thread's conversation log as HTML")
		fmt.Println("  version                 Print version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runProcess(ctx)
	case "check":
		err = runCheck()
	case "transcript":
		err = runTranscript()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runProcess(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	eventReader := os.Stdin
	if path := eventFlag(os.Args[2:]); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening event file: %w", err)
		}
		defer f.Close()
		eventReader = f
	}

	ev, err := platform.ParseEvent(eventReader)
	if err != nil {
		return fmt.Errorf("parsing event: %w", err)
	}

	logger.Info("processing event",
		"thread_id", ev.ThreadID,
		"kind", ev.Kind,
		"actor", ev.Actor,
		"delivery_id", ev.DeliveryID,
	)

	r, err := relay.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	err = r.Process(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, relay.ErrDuplicateDelivery):
		// Redelivery is an expected no-op, not a failure.
		logger.Info("duplicate delivery, nothing to do", "delivery_id", ev.DeliveryID)
		return nil
	case errors.Is(err, relay.ErrGateDenied):
		logger.Info("gate denied", "reason", err)
		return err
	default:
		return err
	}
}

// eventFlag parses an optional --event FILE argument.
func eventFlag(args []string) string {
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--event" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(args[i], "--event="):
			return strings.TrimPrefix(args[i], "--event=")
		}
	}
	return ""
}

func runCheck() error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	green.Print("    ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Repo:   %s\n", cfg.Platform.Repo)
	green.Print("    ▶ ")
	fmt.Printf("State:  %s\n", cfg.State.Dir)
	fmt.Println()

	d := gate.Check(cfg.State.Dir)
	if !d.Allowed {
		red.Printf("    gate: denied (%s)\n", d.Reason)
		return fmt.Errorf("gate denied: %s", d.Reason)
	}

	green.Println("    gate: enabled")
	return nil
}

func runTranscript() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: coven-relay transcript <thread-id>")
	}
	threadID := os.Args[2]

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := session.NewStore(cfg.State.Dir)
	rec, err := store.Get(threadID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("no conversation recorded for thread %s", threadID)
		}
		return fmt.Errorf("reading mapping record: %w", err)
	}

	events, err := engine.ReadLog(filepath.Join(cfg.State.Dir, rec.LogPath))
	if err != nil {
		return fmt.Errorf("reading conversation log: %w", err)
	}

	return transcript.Render(os.Stdout, "thread "+threadID, events)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
