// ABOUTME: Activity marker lifecycle for in-progress runs.
// ABOUTME: Attaches a reaction at run start and guarantees removal on every exit path.

package activity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/coven-relay/internal/platform"
)

// Reactor is the slice of the platform client the marker needs.
type Reactor interface {
	AddReaction(ctx context.Context, ref platform.Ref, content string) (string, error)
	RemoveReaction(ctx context.Context, ref platform.Ref, reactionID string) error
}

// Marker is an attached activity annotation. End must be called exactly once
// per Begin; callers defer it immediately so it runs on every exit path.
type Marker struct {
	reactor    Reactor
	ref        platform.Ref
	reactionID string
	logger     *slog.Logger
	once       sync.Once
}

// Begin attaches the reaction to the triggering event. Attach failures are
// advisory, not correctness-critical: they are logged and the run continues
// with a no-op marker.
func Begin(ctx context.Context, reactor Reactor, ref platform.Ref, content string, logger *slog.Logger) *Marker {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Marker{
		reactor: reactor,
		ref:     ref,
		logger:  logger.With("component", "activity"),
	}

	id, err := reactor.AddReaction(ctx, ref, content)
	if err != nil {
		m.logger.Warn("failed to attach activity marker",
			"thread_id", ref.ThreadID,
			"error", err)
		return m
	}

	m.reactionID = id
	m.logger.Debug("activity marker attached",
		"thread_id", ref.ThreadID,
		"reaction_id", id)
	return m
}

// End removes the marker. Safe to call more than once; only the first call
// does anything. Removal failures are logged, never returned: a stuck
// reaction must not turn a successful run into a failed one.
func (m *Marker) End(ctx context.Context) {
	m.once.Do(func() {
		if m.reactionID == "" {
			return
		}
		if err := m.reactor.RemoveReaction(ctx, m.ref, m.reactionID); err != nil {
			m.logger.Warn("failed to remove activity marker",
				"thread_id", m.ref.ThreadID,
				"reaction_id", m.reactionID,
				"error", err)
			return
		}
		m.logger.Debug("activity marker removed",
			"thread_id", m.ref.ThreadID,
			"reaction_id", m.reactionID)
	})
}
