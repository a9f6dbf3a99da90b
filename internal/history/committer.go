// ABOUTME: Durable state commits over a shared git-backed history store.
// ABOUTME: Optimistic push with bounded rebase-and-retry when the remote tip moves.

package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrRetryExhausted is returned when the remote tip keeps moving for the
// whole retry budget. The caller must surface this: the reply may already
// be visible on the thread even though the record of it is not durable.
var ErrRetryExhausted = errors.New("commit retry attempts exhausted")

// Git executes one git invocation in the state checkout and returns its
// combined output. Production uses the git binary; tests script it.
type Git interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Committer persists a run's artifacts as one atomic unit of history.
// Runs on other hosts push to the same store concurrently, so a push can
// be rejected; the staged changes are keyed by this thread's own files and
// never semantically conflict with another thread's, which is what makes
// blind rebase-and-retry sound.
type Committer struct {
	git      Git
	remote   string
	branch   string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
	sleep    func(time.Duration)
}

// New creates a committer over the given git runner.
func New(git Git, remote, branch string, attempts int, backoff time.Duration, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{
		git:      git,
		remote:   remote,
		branch:   branch,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger.With("component", "history"),
		sleep:    time.Sleep,
	}
}

// Commit records the given paths as a single commit and pushes it,
// rebasing onto the latest remote tip and retrying when another run
// committed in the meantime. The local commit makes the mapping record
// and conversation log durable together or not at all.
func (c *Committer) Commit(ctx context.Context, paths []string, message string) error {
	addArgs := append([]string{"add", "--"}, paths...)
	if _, err := c.git.Run(ctx, addArgs...); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}

	if out, err := c.git.Run(ctx, "commit", "-m", message); err != nil {
		if strings.Contains(out, "nothing to commit") {
			c.logger.Debug("nothing to commit", "paths", paths)
			return nil
		}
		return fmt.Errorf("committing changes: %w", err)
	}

	for attempt := 1; attempt <= c.attempts; attempt++ {
		_, err := c.git.Run(ctx, "push", c.remote, "HEAD:"+c.branch)
		if err == nil {
			c.logger.Info("state committed",
				"paths", paths,
				"attempt", attempt)
			return nil
		}

		if !isTipMoved(err) {
			return fmt.Errorf("pushing state: %w", err)
		}

		c.logger.Warn("remote tip moved, rebasing",
			"attempt", attempt,
			"error", err)

		if _, rbErr := c.git.Run(ctx, "pull", "--rebase", c.remote, c.branch); rbErr != nil {
			return fmt.Errorf("rebasing onto moved tip: %w", rbErr)
		}

		if attempt < c.attempts {
			c.sleep(c.backoff)
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrRetryExhausted, c.attempts)
}

// isTipMoved recognizes a push rejected because another run advanced the
// remote tip first.
func isTipMoved(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "fetch first") ||
		strings.Contains(msg, "[rejected]") ||
		strings.Contains(msg, "failed to push some refs")
}
