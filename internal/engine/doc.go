// Package engine drives the external reasoning engine and recovers its
// final reply.
//
// # Boundary
//
// The engine is a black box invoked as a subprocess: it takes an input
// message, a conversation log for context, and a new-vs-resume mode flag,
// and streams typed events (text, tool invocations and results, an
// end-of-turn marker) on stdout, one JSON document per line.
//
// The driver translates that native stream into the internal Event schema
// immediately on receipt and appends every event to the conversation log.
// Nothing outside this package touches the engine's wire format.
//
// # Extraction
//
// FinalReply scans the translated stream from the end for the most recent
// end-of-turn event with a non-empty text payload. A stream without one is
// ErrAgentFailure — the relay stays silent rather than inventing a reply.
//
// # Failure
//
// Non-zero exit, timeout, and malformed stream all collapse into
// ErrAgentFailure. The driver never retries: the engine may have already
// mutated files as a side effect, so a rerun is a human decision.
package engine
