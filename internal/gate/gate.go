// ABOUTME: Fail-closed enable gate for the relay.
// ABOUTME: Automation runs only while the enable sentinel file exists.

package gate

import (
	"fmt"
	"os"
	"path/filepath"
)

// SentinelPath is the enable sentinel location relative to the state dir.
// The sentinel is created and removed by a human operator, never by the relay.
const SentinelPath = ".coven/enabled"

// Decision is the result of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Check tests for the enable sentinel under the state dir. Absence of the
// sentinel, or any inability to observe it, denies the run. The check is
// pure and uncached: every run re-derives the state fresh, because a stale
// answer here is a safety bug.
func Check(stateDir string) Decision {
	path := filepath.Join(stateDir, SentinelPath)

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Decision{Allowed: true}
	case os.IsNotExist(err):
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("automation is disabled: enable sentinel %s does not exist", path),
		}
	default:
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("automation is disabled: cannot read enable sentinel %s: %v", path, err),
		}
	}
}
