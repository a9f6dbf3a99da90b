// Package platform models the issue-tracking platform boundary.
//
// # Overview
//
// The relay is triggered by platform events (a new issue, or a comment on an
// existing one) and talks back to the platform in exactly three ways: posting
// a reply comment, attaching/removing the activity reaction, and reading the
// triggering actor's permission tier.
//
// # Event Normalization
//
// ParseEvent turns the platform's webhook JSON into an Event:
//
//	ev, err := platform.ParseEvent(file)
//	ev.ThreadID   // stable thread identifier ("42")
//	ev.Kind       // KindNewThread or KindReply
//	ev.Input()    // the text that opens or continues the conversation
//
// # Client
//
// The Client interface is implemented by CLIClient, which shells out to the
// platform CLI per call. There is no session state: each relay run is an
// independent short-lived process, so a process-per-call CLI boundary fits.
//
// # Authorization
//
// The relay performs one authorization check, before anything else runs:
// the actor's permission tier must be at or above the configured minimum
// (TierAtLeast). Everything beyond that is the platform's problem.
package platform
