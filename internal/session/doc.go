// Package session maps platform threads to persisted conversation logs.
//
// # Mapping Records
//
// One TOML document per thread lives under <state dir>/threads/. A record
// holds the thread id, the relative path of its conversation log, and the
// last-updated timestamp. Records are replaced whole on every turn; the
// committer owns when they become durable, this package only reads and
// stages them.
//
// # Resolution
//
// Resolver.Resolve answers new-vs-resume:
//
//	res, err := resolver.Resolve("42")
//	res.IsNew    // true: engine starts with no prior context
//	res.LogPath  // where this session's turns live
//
// A mapping whose log was deleted out-of-band resolves exactly like a
// missing mapping. That degradation also covers a prior run that was killed
// before committing: the next run for the thread simply starts fresh.
package session
