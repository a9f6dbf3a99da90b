// Package activity manages the "work in progress" annotation on the
// triggering event.
//
// Begin attaches a reaction, End removes it. The marker is a scoped
// resource: Begin never fails the run (a missing marker is a cosmetic
// problem), and End is idempotent and expected to be deferred so the
// reaction comes off on success, failure, and panic alike. Nothing about
// the marker is persisted.
package activity
