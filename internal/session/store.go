// ABOUTME: Mapping record persistence: one TOML document per thread id.
// ABOUTME: Records point a thread at its conversation log and are overwritten whole.

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrNotFound is returned when no mapping record exists for a thread.
var ErrNotFound = errors.New("mapping record not found")

// Record maps a thread id to its conversation log. Records are created on
// first contact with a thread and overwritten, never partially mutated,
// on every subsequent turn.
type Record struct {
	ThreadID  string    `toml:"thread_id"`
	LogPath   string    `toml:"log_path"` // relative to the state dir
	UpdatedAt time.Time `toml:"updated_at"`
}

// Store reads and writes mapping records under <state dir>/threads/.
type Store struct {
	dir string
}

// NewStore creates a mapping store rooted at the state dir.
func NewStore(stateDir string) *Store {
	return &Store{dir: stateDir}
}

// RecordPath returns the on-disk path of a thread's mapping record,
// relative to the state dir. The committer stages this path.
func (s *Store) RecordPath(threadID string) string {
	return filepath.Join("threads", sanitize(threadID)+".toml")
}

// Get loads the mapping record for a thread. Returns ErrNotFound when no
// record exists.
func (s *Store) Get(threadID string) (*Record, error) {
	path := filepath.Join(s.dir, s.RecordPath(threadID))

	var rec Record
	if _, err := toml.DecodeFile(path, &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading mapping record for thread %s: %w", threadID, err)
	}
	return &rec, nil
}

// Put writes a mapping record, replacing any existing one. The write goes
// through a temp file and rename so a torn write is never observable.
func (s *Store) Put(rec *Record) error {
	path := filepath.Join(s.dir, s.RecordPath(rec.ThreadID))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating threads directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*")
	if err != nil {
		return fmt.Errorf("staging mapping record for thread %s: %w", rec.ThreadID, err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(rec); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding mapping record for thread %s: %w", rec.ThreadID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing mapping record for thread %s: %w", rec.ThreadID, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing mapping record for thread %s: %w", rec.ThreadID, err)
	}
	return nil
}

// sanitize keeps thread ids filesystem-safe. Platform thread ids are
// numeric in practice; anything else is reduced to a conservative charset.
func sanitize(threadID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, threadID)
}
