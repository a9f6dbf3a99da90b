// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
engine:
  provider: "claude"
  model: "sonnet"
  thinking_depth: "high"
  tool_allowlist:
    - "Read"
    - "Grep"
  timeout: "5m"

platform:
  repo: "2389/coven"
  min_permission: "maintain"
  max_comment_bytes: 1000
  reaction: "rocket"

state:
  dir: "/tmp/relay-state"
  remote: "upstream"
  branch: "trunk"
  commit_attempts: 5
  retry_backoff: "500ms"

dedupe:
  path: "/tmp/dedupe.db"
  ttl: "24h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Provider != "claude" {
		t.Errorf("Engine.Provider = %q, want %q", cfg.Engine.Provider, "claude")
	}
	if cfg.Engine.Model != "sonnet" {
		t.Errorf("Engine.Model = %q, want %q", cfg.Engine.Model, "sonnet")
	}
	if cfg.Engine.Timeout != 5*time.Minute {
		t.Errorf("Engine.Timeout = %v, want %v", cfg.Engine.Timeout, 5*time.Minute)
	}
	if len(cfg.Engine.ToolAllowlist) != 2 {
		t.Errorf("Engine.ToolAllowlist = %v, want 2 entries", cfg.Engine.ToolAllowlist)
	}
	if cfg.Platform.Repo != "2389/coven" {
		t.Errorf("Platform.Repo = %q, want %q", cfg.Platform.Repo, "2389/coven")
	}
	if cfg.Platform.MaxCommentBytes != 1000 {
		t.Errorf("Platform.MaxCommentBytes = %d, want 1000", cfg.Platform.MaxCommentBytes)
	}
	if cfg.State.CommitAttempts != 5 {
		t.Errorf("State.CommitAttempts = %d, want 5", cfg.State.CommitAttempts)
	}
	if cfg.State.RetryBackoff != 500*time.Millisecond {
		t.Errorf("State.RetryBackoff = %v, want 500ms", cfg.State.RetryBackoff)
	}
	if cfg.Dedupe.TTL != 24*time.Hour {
		t.Errorf("Dedupe.TTL = %v, want 24h", cfg.Dedupe.TTL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
platform:
  repo: "2389/coven"
state:
  dir: "/tmp/relay-state"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Provider != "claude" {
		t.Errorf("default Engine.Provider = %q, want claude", cfg.Engine.Provider)
	}
	if cfg.Engine.Binary != "claude" {
		t.Errorf("default Engine.Binary = %q, want claude", cfg.Engine.Binary)
	}
	if cfg.Engine.Timeout != 10*time.Minute {
		t.Errorf("default Engine.Timeout = %v, want 10m", cfg.Engine.Timeout)
	}
	if cfg.Platform.MinPermission != "write" {
		t.Errorf("default Platform.MinPermission = %q, want write", cfg.Platform.MinPermission)
	}
	if cfg.Platform.MaxCommentBytes != 65536 {
		t.Errorf("default Platform.MaxCommentBytes = %d, want 65536", cfg.Platform.MaxCommentBytes)
	}
	if cfg.Platform.Reaction != "eyes" {
		t.Errorf("default Platform.Reaction = %q, want eyes", cfg.Platform.Reaction)
	}
	if cfg.State.Remote != "origin" || cfg.State.Branch != "main" {
		t.Errorf("default remote/branch = %q/%q, want origin/main", cfg.State.Remote, cfg.State.Branch)
	}
	if cfg.State.CommitAttempts != 3 {
		t.Errorf("default State.CommitAttempts = %d, want 3", cfg.State.CommitAttempts)
	}
	if cfg.Dedupe.TTL != 72*time.Hour {
		t.Errorf("default Dedupe.TTL = %v, want 72h", cfg.Dedupe.TTL)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_REPO", "2389/expanded")

	path := writeConfig(t, `
platform:
  repo: "${RELAY_TEST_REPO}"
state:
  dir: "/tmp/relay-state"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Platform.Repo != "2389/expanded" {
		t.Errorf("Platform.Repo = %q, want expanded env value", cfg.Platform.Repo)
	}
}

func TestLoad_MissingStateDir(t *testing.T) {
	path := writeConfig(t, `
platform:
  repo: "2389/coven"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for missing state.dir")
	}
	if !strings.Contains(err.Error(), "state.dir") {
		t.Errorf("error = %v, want mention of state.dir", err)
	}
}

func TestLoad_MissingRepo(t *testing.T) {
	path := writeConfig(t, `
state:
  dir: "/tmp/relay-state"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for missing platform.repo")
	}
	if !strings.Contains(err.Error(), "platform.repo") {
		t.Errorf("error = %v, want mention of platform.repo", err)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	path := writeConfig(t, `
engine:
  provider: "banana"
platform:
  repo: "2389/coven"
state:
  dir: "/tmp/relay-state"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for unknown provider")
	}
}

func TestLoad_ExecProviderRequiresBinary(t *testing.T) {
	path := writeConfig(t, `
engine:
  provider: "exec"
platform:
  repo: "2389/coven"
state:
  dir: "/tmp/relay-state"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for exec provider without binary")
	}
}

func TestLoad_InvalidThinkingDepth(t *testing.T) {
	path := writeConfig(t, `
engine:
  thinking_depth: "extreme"
platform:
  repo: "2389/coven"
state:
  dir: "/tmp/relay-state"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid thinking_depth")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
engine:
  timeout: "not-a-duration"
platform:
  repo: "2389/coven"
state:
  dir: "/tmp/relay-state"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error = %v, want mention of timeout", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
