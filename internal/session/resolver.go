// ABOUTME: Session resolution: maps a thread id to a conversation log path.
// ABOUTME: Decides fresh-start vs resume, degrading gracefully on lost logs.

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Resolution is the outcome of resolving a thread.
type Resolution struct {
	LogPath string // conversation log path, relative to the state dir
	IsNew   bool   // true: fresh session, no prior context
}

// Resolver decides whether a triggering event continues an existing
// conversation or opens a new one.
type Resolver struct {
	store  *Store
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver creates a resolver over the given mapping store and state dir.
func NewResolver(store *Store, stateDir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		dir:    stateDir,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
}

// Resolve looks up the thread's mapping record. A record whose log still
// exists means resume; anything else (no record, unreadable record, or a
// mapped log deleted out-of-band) means a fresh session with a newly
// allocated log path. A missing-but-mapped log is data loss handled by
// degradation, never an error that aborts the run.
func (r *Resolver) Resolve(threadID string) (Resolution, error) {
	rec, err := r.store.Get(threadID)
	switch {
	case err == nil:
		if _, statErr := os.Stat(filepath.Join(r.dir, rec.LogPath)); statErr == nil {
			r.logger.Debug("resuming session",
				"thread_id", threadID,
				"log_path", rec.LogPath)
			return Resolution{LogPath: rec.LogPath, IsNew: false}, nil
		}
		r.logger.Warn("mapped conversation log is missing, starting fresh",
			"thread_id", threadID,
			"log_path", rec.LogPath)

	case errors.Is(err, ErrNotFound):
		// First contact with this thread.

	default:
		r.logger.Warn("mapping record unreadable, starting fresh",
			"thread_id", threadID,
			"error", err)
	}

	logPath := r.allocateLogPath()
	if err := os.MkdirAll(filepath.Join(r.dir, filepath.Dir(logPath)), 0755); err != nil {
		return Resolution{}, fmt.Errorf("creating logs directory: %w", err)
	}

	r.logger.Debug("new session",
		"thread_id", threadID,
		"log_path", logPath)
	return Resolution{LogPath: logPath, IsNew: true}, nil
}

// allocateLogPath names a previously-unused conversation log. Timestamp
// plus UUID keeps paths unique across concurrent runs on different hosts.
func (r *Resolver) allocateLogPath() string {
	stamp := r.now().UTC().Format("20060102T150405")
	return filepath.Join("logs", fmt.Sprintf("%s-%s.jsonl", stamp, uuid.New().String()))
}
