// ABOUTME: Conversation log I/O: append-only JSONL of internal events.
// ABOUTME: The log is only ever extended, never rewritten.

package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// appendEvents extends the conversation log with events, one JSON document
// per line, in the order the engine emitted them.
func appendEvents(path string, events []Event) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening conversation log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("appending to conversation log: %w", err)
		}
	}
	return nil
}

// ReadLog loads a conversation log back into events. Blank lines are
// skipped; a malformed line is an error, since the relay is the only
// writer of this file.
func ReadLog(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening conversation log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("parsing conversation log %s: %w", path, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading conversation log %s: %w", path, err)
	}
	return events, nil
}
