// Package transcript renders conversation logs as HTML for operator
// inspection via the transcript subcommand.
package transcript
