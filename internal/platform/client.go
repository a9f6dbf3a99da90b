// ABOUTME: Issue-platform client interface and CLI-backed implementation.
// ABOUTME: Posts comments, manages reactions, and reads actor permissions via the platform CLI.

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Ref identifies where a reaction attaches: a specific comment when
// CommentID is set, otherwise the thread itself.
type Ref struct {
	ThreadID  string
	CommentID string
}

// Client is the surface the relay needs from the issue platform.
// Authorization beyond the actor-tier check is delegated to the platform.
type Client interface {
	// PostComment publishes a text comment on the thread.
	PostComment(ctx context.Context, threadID, body string) error

	// AddReaction attaches a reaction to the ref and returns its id,
	// which RemoveReaction needs to take it off again.
	AddReaction(ctx context.Context, ref Ref, content string) (string, error)

	// RemoveReaction removes a previously attached reaction.
	RemoveReaction(ctx context.Context, ref Ref, reactionID string) error

	// ActorPermission returns the actor's permission tier on the repo
	// (one of none, read, triage, write, maintain, admin).
	ActorPermission(ctx context.Context, actor string) (string, error)
}

// tierRank orders permission tiers for the authorization check.
var tierRank = map[string]int{
	"none":     0,
	"read":     1,
	"triage":   2,
	"write":    3,
	"maintain": 4,
	"admin":    5,
}

// TierAtLeast reports whether the actual permission tier is at or above min.
// Unknown tiers rank below everything.
func TierAtLeast(actual, min string) bool {
	return tierRank[actual] >= tierRank[min] && tierRank[actual] > 0
}

// runner executes one platform CLI invocation and returns its stdout.
// Split out so tests can substitute a fake.
type runner func(ctx context.Context, args ...string) ([]byte, error)

// CLIClient talks to the platform through its command-line client
// ("gh api" style endpoints). One process per call; no ambient state.
type CLIClient struct {
	repo   string
	run    runner
	logger *slog.Logger
}

// NewCLIClient creates a client for the given owner/name repository.
func NewCLIClient(repo string, logger *slog.Logger) *CLIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIClient{
		repo:   repo,
		run:    ghRun,
		logger: logger.With("component", "platform"),
	}
}

// ghRun shells out to the gh binary.
func ghRun(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// PostComment publishes a comment on the thread.
func (c *CLIClient) PostComment(ctx context.Context, threadID, body string) error {
	_, err := c.run(ctx, "api",
		fmt.Sprintf("repos/%s/issues/%s/comments", c.repo, threadID),
		"-f", "body="+body)
	if err != nil {
		return fmt.Errorf("posting comment on thread %s: %w", threadID, err)
	}
	c.logger.Debug("comment posted", "thread_id", threadID, "bytes", len(body))
	return nil
}

// AddReaction attaches a reaction to the ref and returns its id.
func (c *CLIClient) AddReaction(ctx context.Context, ref Ref, content string) (string, error) {
	out, err := c.run(ctx, "api", c.reactionEndpoint(ref), "-f", "content="+content)
	if err != nil {
		return "", fmt.Errorf("adding reaction to thread %s: %w", ref.ThreadID, err)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(out, &created); err != nil {
		return "", fmt.Errorf("parsing reaction response: %w", err)
	}
	return fmt.Sprintf("%d", created.ID), nil
}

// RemoveReaction removes a previously attached reaction.
func (c *CLIClient) RemoveReaction(ctx context.Context, ref Ref, reactionID string) error {
	endpoint := c.reactionEndpoint(ref) + "/" + reactionID
	if _, err := c.run(ctx, "api", "--method", "DELETE", endpoint); err != nil {
		return fmt.Errorf("removing reaction %s from thread %s: %w", reactionID, ref.ThreadID, err)
	}
	return nil
}

// ActorPermission returns the actor's permission tier on the repo.
func (c *CLIClient) ActorPermission(ctx context.Context, actor string) (string, error) {
	out, err := c.run(ctx, "api",
		fmt.Sprintf("repos/%s/collaborators/%s/permission", c.repo, actor))
	if err != nil {
		return "", fmt.Errorf("reading permission for %s: %w", actor, err)
	}

	var resp struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("parsing permission response: %w", err)
	}
	if resp.Permission == "" {
		return "none", nil
	}
	return resp.Permission, nil
}

// reactionEndpoint picks the comment or thread reactions collection for a ref.
func (c *CLIClient) reactionEndpoint(ref Ref) string {
	if ref.CommentID != "" {
		return fmt.Sprintf("repos/%s/issues/comments/%s/reactions", c.repo, ref.CommentID)
	}
	return fmt.Sprintf("repos/%s/issues/%s/reactions", c.repo, ref.ThreadID)
}
