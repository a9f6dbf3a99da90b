// ABOUTME: Per-run orchestration: gate, activity marker, session resolution, engine, publish, commit.
// ABOUTME: One Process call handles one triggering event end to end.

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/2389/coven-relay/internal/activity"
	"github.com/2389/coven-relay/internal/config"
	"github.com/2389/coven-relay/internal/dedupe"
	"github.com/2389/coven-relay/internal/engine"
	"github.com/2389/coven-relay/internal/gate"
	"github.com/2389/coven-relay/internal/history"
	"github.com/2389/coven-relay/internal/platform"
	"github.com/2389/coven-relay/internal/session"
)

// Resolver maps a thread to its conversation log.
type Resolver interface {
	Resolve(threadID string) (session.Resolution, error)
}

// MappingStore stages mapping record updates.
type MappingStore interface {
	Put(rec *session.Record) error
	RecordPath(threadID string) string
}

// Driver runs one engine turn.
type Driver interface {
	Run(ctx context.Context, input, logPath string, isNew bool) (*engine.Turn, error)
}

// Committer persists staged artifacts durably.
type Committer interface {
	Commit(ctx context.Context, paths []string, message string) error
}

// Deduper tracks processed delivery ids. May be nil (dedupe disabled).
// Seen and Mark are split so a run marks its delivery only once it has
// actually done the work: a failed run leaves the id unmarked and the
// platform's redelivery reprocesses the event.
type Deduper interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	Mark(ctx context.Context, deliveryID string) error
}

// GateFunc evaluates the enable gate.
type GateFunc func() gate.Decision

// Relay processes triggering events. Each Process call is one independent
// run; the struct holds no cross-run state.
type Relay struct {
	cfg       *config.Config
	client    platform.Client
	gate      GateFunc
	resolver  Resolver
	mappings  MappingStore
	driver    Driver
	committer Committer
	deduper   Deduper
	logger    *slog.Logger
	now       func() time.Time
}

// New wires a production relay from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := session.NewStore(cfg.State.Dir)

	var deduper Deduper
	if cfg.Dedupe.Path != "" {
		d, err := dedupe.Open(cfg.Dedupe.Path, cfg.Dedupe.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("opening dedupe store: %w", err)
		}
		deduper = d
	}

	return &Relay{
		cfg:      cfg,
		client:   platform.NewCLIClient(cfg.Platform.Repo, logger),
		gate:     func() gate.Decision { return gate.Check(cfg.State.Dir) },
		resolver: session.NewResolver(store, cfg.State.Dir, logger),
		mappings: store,
		driver: engine.NewDriver(engine.Options{
			Provider:      cfg.Engine.Provider,
			Binary:        cfg.Engine.Binary,
			Model:         cfg.Engine.Model,
			ThinkingDepth: cfg.Engine.ThinkingDepth,
			ToolAllowlist: cfg.Engine.ToolAllowlist,
			Timeout:       cfg.Engine.Timeout,
		}, cfg.State.Dir, logger),
		committer: history.New(
			history.NewCLIGit(cfg.State.Dir),
			cfg.State.Remote,
			cfg.State.Branch,
			cfg.State.CommitAttempts,
			cfg.State.RetryBackoff,
			logger,
		),
		deduper: deduper,
		logger:  logger.With("component", "relay"),
		now:     time.Now,
	}, nil
}

// Process handles one triggering event: authorize, dedupe, gate, mark
// activity, resolve the session, drive the engine, publish the reply, and
// commit state. The activity marker comes off on every exit path.
func (r *Relay) Process(ctx context.Context, ev *platform.Event) error {
	logger := r.logger.With("thread_id", ev.ThreadID, "actor", ev.Actor)

	// Authorization precedes everything, the gate included.
	perm, err := r.client.ActorPermission(ctx, ev.Actor)
	if err != nil {
		return fmt.Errorf("checking actor permission: %w", err)
	}
	if !platform.TierAtLeast(perm, r.cfg.Platform.MinPermission) {
		return fmt.Errorf("%w: %s has %s, need %s",
			ErrUnauthorized, ev.Actor, perm, r.cfg.Platform.MinPermission)
	}

	// Redelivered events exit before any side effect. The check only
	// reads: the id is marked at the end of the run, so a gate denial
	// or mid-run failure leaves the redelivery free to try again.
	// Dedupe is best-effort: a broken store logs and lets the run
	// continue.
	if r.deduper != nil && ev.DeliveryID != "" {
		seen, err := r.deduper.Seen(ctx, ev.DeliveryID)
		if err != nil {
			logger.Warn("dedupe check failed, continuing", "error", err)
		} else if seen {
			return fmt.Errorf("%w: delivery %s", ErrDuplicateDelivery, ev.DeliveryID)
		}
	}

	if d := r.gate(); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrGateDenied, d.Reason)
	}

	marker := activity.Begin(ctx, r.client, ev.Ref(), r.cfg.Platform.Reaction, r.logger)
	// The marker must come off even when the surrounding context is
	// already cancelled or a later stage panics.
	defer marker.End(context.WithoutCancel(ctx))

	res, err := r.resolver.Resolve(ev.ThreadID)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}

	logger.Info("session resolved",
		"log_path", res.LogPath,
		"is_new", res.IsNew)

	turn, err := r.driver.Run(ctx, ev.Input(), res.LogPath, res.IsNew)
	if err != nil {
		// No reply is posted on engine failure: silence is the
		// failure signal.
		return err
	}

	reply := engine.TruncateReply(turn.Reply, r.cfg.Platform.MaxCommentBytes)

	var publishErr error
	if err := r.client.PostComment(ctx, ev.ThreadID, reply); err != nil {
		// The engine's work should not be lost over a failed post;
		// record the failure and still persist state.
		publishErr = fmt.Errorf("%w: %v", ErrPublishFailure, err)
		logger.Error("failed to publish reply", "error", err)
	}

	if err := r.commitState(ctx, ev.ThreadID, res.LogPath); err != nil {
		commitErr := fmt.Errorf("%w: %v", ErrCommitFailure, err)
		logger.Error("failed to commit state", "error", err)
		return errors.Join(publishErr, commitErr)
	}

	// State is durable; only now is the delivery spent.
	if r.deduper != nil && ev.DeliveryID != "" {
		if err := r.deduper.Mark(ctx, ev.DeliveryID); err != nil {
			logger.Warn("failed to mark delivery processed", "error", err)
		}
	}

	logger.Info("run complete", "is_new", res.IsNew, "reply_bytes", len(reply))
	return publishErr
}

// Close releases resources held by the relay's stores.
func (r *Relay) Close() error {
	if c, ok := r.deduper.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// commitState stages the mapping record update and commits it together
// with the conversation log as one atomic unit.
func (r *Relay) commitState(ctx context.Context, threadID, logPath string) error {
	if err := r.mappings.Put(&session.Record{
		ThreadID:  threadID,
		LogPath:   logPath,
		UpdatedAt: r.now(),
	}); err != nil {
		return fmt.Errorf("staging mapping record: %w", err)
	}

	paths := []string{r.mappings.RecordPath(threadID), logPath}
	message := fmt.Sprintf("relay: thread %s turn at %s",
		threadID, r.now().UTC().Format(time.RFC3339))

	return r.committer.Commit(ctx, paths, message)
}
