// Package gate implements the relay's fail-closed enable switch.
//
// The switch is the presence of a single sentinel file in the state
// directory. No sentinel means no automation: every run checks it fresh
// before doing anything observable, and a denied check terminates the run
// with a non-zero outcome before any other component executes.
package gate
