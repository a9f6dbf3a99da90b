// ABOUTME: Tests for the optimistic commit-retry protocol.
// ABOUTME: Scripts a fake git runner to simulate concurrent tip advances.

package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGit plays back canned results per git subcommand.
type scriptedGit struct {
	calls     [][]string
	pushErrs  []error // consumed in order; nil means success
	pushCount int
	commitOut string
	commitErr error
	rebaseErr error
}

func (g *scriptedGit) Run(_ context.Context, args ...string) (string, error) {
	g.calls = append(g.calls, args)
	switch args[0] {
	case "add":
		return "", nil
	case "commit":
		return g.commitOut, g.commitErr
	case "push":
		i := g.pushCount
		g.pushCount++
		if i < len(g.pushErrs) {
			return "", g.pushErrs[i]
		}
		return "", nil
	case "pull":
		return "", g.rebaseErr
	}
	return "", nil
}

func newTestCommitter(g *scriptedGit) *Committer {
	c := New(g, "origin", "main", 3, time.Millisecond, nil)
	c.sleep = func(time.Duration) {}
	return c
}

func rejected() error {
	return errors.New("! [rejected] main -> main (non-fast-forward)")
}

func TestCommit_FirstPushSucceeds(t *testing.T) {
	g := &scriptedGit{}
	c := newTestCommitter(g)

	err := c.Commit(context.Background(), []string{"threads/7.toml", "logs/a.jsonl"}, "relay: thread 7")
	require.NoError(t, err)

	require.Len(t, g.calls, 3) // add, commit, push
	assert.Equal(t, []string{"add", "--", "threads/7.toml", "logs/a.jsonl"}, g.calls[0])
	assert.Equal(t, []string{"push", "origin", "HEAD:main"}, g.calls[2])
}

func TestCommit_RetriesOnTipMove(t *testing.T) {
	g := &scriptedGit{pushErrs: []error{rejected(), rejected(), nil}}
	c := newTestCommitter(g)

	err := c.Commit(context.Background(), []string{"threads/7.toml"}, "relay: thread 7")
	require.NoError(t, err)

	assert.Equal(t, 3, g.pushCount)

	// Each rejected push is followed by a rebase onto the moved tip.
	var pulls int
	for _, call := range g.calls {
		if call[0] == "pull" {
			pulls++
			assert.Equal(t, []string{"pull", "--rebase", "origin", "main"}, call)
		}
	}
	assert.Equal(t, 2, pulls)
}

func TestCommit_RetryExhaustion(t *testing.T) {
	g := &scriptedGit{pushErrs: []error{rejected(), rejected(), rejected()}}
	c := newTestCommitter(g)

	err := c.Commit(context.Background(), []string{"threads/7.toml"}, "relay: thread 7")
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 3, g.pushCount, "must stop at the bound, not retry forever")
}

func TestCommit_NonTipErrorIsNotRetried(t *testing.T) {
	g := &scriptedGit{pushErrs: []error{errors.New("fatal: could not read from remote repository")}}
	c := newTestCommitter(g)

	err := c.Commit(context.Background(), []string{"threads/7.toml"}, "relay: thread 7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 1, g.pushCount)
}

func TestCommit_NothingToCommit(t *testing.T) {
	g := &scriptedGit{
		commitOut: "nothing to commit, working tree clean",
		commitErr: errors.New("exit status 1"),
	}
	c := newTestCommitter(g)

	err := c.Commit(context.Background(), []string{"threads/7.toml"}, "relay: thread 7")
	assert.NoError(t, err)
	assert.Equal(t, 0, g.pushCount)
}

func TestCommit_RebaseFailureSurfaces(t *testing.T) {
	g := &scriptedGit{
		pushErrs:  []error{rejected()},
		rebaseErr: errors.New("CONFLICT (content)"),
	}
	c := newTestCommitter(g)

	err := c.Commit(context.Background(), []string{"threads/7.toml"}, "relay: thread 7")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "rebasing"))
}
