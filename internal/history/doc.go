// Package history persists run artifacts to the shared git-backed store.
//
// # Model
//
// The durable history store is a git repository shared by unbounded
// concurrent, independent runs. No locks exist anywhere: coordination is
// purely optimistic. A run stages its thread's mapping record and
// conversation log, commits them as one unit, and pushes. A rejected push
// means another run advanced the tip first; the committer rebases the
// local commit on top and tries again, up to a small fixed bound.
//
// # Atomicity
//
// The mapping record and conversation log for a thread travel in the same
// commit, so no observer ever sees one without the other.
//
// # The accepted race
//
// Two concurrent runs on the same thread both succeed under this protocol;
// whichever commit lands last determines the final mapping record. That is
// a documented property of the design, not a bug to lock away.
package history
