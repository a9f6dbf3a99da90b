// ABOUTME: Package documentation for the relay orchestration layer.
// ABOUTME: Describes the run pipeline and its failure modes.

// Package relay orchestrates one complete run: from a triggering event to
// a posted reply and a committed state update.
//
// # Pipeline
//
// Process executes the stages in a fixed order:
//
//  1. Authorization: the actor's permission tier must meet the configured
//     minimum. Fails closed when the tier cannot be determined.
//  2. Dedupe: redelivered events exit before any side effect. The check
//     is read-only; the delivery id is marked spent only after state has
//     committed, so a denied or failed run can be redelivered and
//     retried. A broken dedupe store only logs; it never blocks a run.
//  3. Gate: the enable sentinel is checked fresh on every run.
//  4. Activity marker: a reaction goes on before the engine starts and
//     comes off on every exit path, including context cancellation.
//  5. Session resolution: the thread maps to an existing conversation log
//     or a freshly allocated one.
//  6. Engine turn: the reasoning engine runs with the event's input. On
//     failure no reply is posted; silence is the failure signal.
//  7. Publish: the reply is truncated to the platform limit and posted.
//     A failed post is recorded but does not stop state persistence.
//  8. Commit: the mapping record and conversation log are committed as
//     one unit through the retrying committer.
//
// # Failure Modes
//
// Each sentinel in errors.go marks a distinct outcome: ErrUnauthorized and
// ErrDuplicateDelivery and ErrGateDenied end the run before side effects,
// ErrPublishFailure means the turn completed but the reply never landed,
// and ErrCommitFailure means the reply may exist while its record does
// not. Callers map these to exit codes.
package relay
