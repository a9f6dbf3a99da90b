// Package config handles configuration loading for coven-relay.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_RELAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/relay.yaml
//  3. ~/.config/coven/relay.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	platform:
//	  repo: "${RELAY_REPO}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	engine:
//	  timeout: "10m"
//	state:
//	  retry_backoff: "2s"
//
// # Configuration Sections
//
// Reasoning engine (provider, model, thinking depth and the tool allowlist
// are opaque passthrough values; the relay forwards them unmodified):
//
//	engine:
//	  provider: "claude"          # claude, exec
//	  binary: "claude"
//	  model: "sonnet"
//	  thinking_depth: "medium"    # low, medium, high
//	  tool_allowlist: ["Read", "Grep"]
//	  timeout: "10m"
//
// Issue platform:
//
//	platform:
//	  repo: "2389/coven"
//	  min_permission: "write"     # write, maintain, admin
//	  max_comment_bytes: 65536
//	  reaction: "eyes"
//
// Durable history store:
//
//	state:
//	  dir: "/srv/relay/state"     # git checkout
//	  remote: "origin"
//	  branch: "main"
//	  commit_attempts: 3
//	  retry_backoff: "2s"
//
// Delivery dedupe:
//
//	dedupe:
//	  path: "/var/lib/coven/relay-dedupe.db"
//	  ttl: "72h"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
