// ABOUTME: Run-level error taxonomy for the relay pipeline.
// ABOUTME: Each kind maps to a distinct failure mode callers must handle differently.

package relay

import "errors"

var (
	// ErrUnauthorized: the triggering actor's permission tier is below
	// the configured minimum. Nothing ran.
	ErrUnauthorized = errors.New("actor not authorized")

	// ErrDuplicateDelivery: this event was already processed. Not a
	// failure; the caller exits cleanly without side effects.
	ErrDuplicateDelivery = errors.New("event already processed")

	// ErrGateDenied: automation is disabled. The run aborts before any
	// side effect.
	ErrGateDenied = errors.New("automation gate denied")

	// ErrPublishFailure: the reply could not be posted. The run still
	// persisted state, since the engine's work should not be lost.
	ErrPublishFailure = errors.New("reply publish failed")

	// ErrCommitFailure: state could not be durably recorded after
	// bounded retries. Reported distinctly from ErrPublishFailure: the
	// user-visible reply may exist while the record of it does not.
	ErrCommitFailure = errors.New("state commit failed")
)
