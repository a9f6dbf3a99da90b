// Package dedupe tracks processed delivery ids so a redelivered platform
// event does not produce a second reply. Best-effort and host-local: a
// duplicate that slips through on another host posts a redundant comment,
// nothing worse.
package dedupe
