// ABOUTME: Triggering event payload model and parsing.
// ABOUTME: Normalizes platform webhook JSON into the internal Event shape.

package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// EventKind distinguishes a brand-new thread from a reply on an existing one.
type EventKind string

const (
	KindNewThread EventKind = "new_thread"
	KindReply     EventKind = "reply"
)

// ErrNoThread indicates the payload did not reference a thread.
var ErrNoThread = errors.New("event payload has no thread reference")

// Event is the normalized triggering event for one relay run.
type Event struct {
	ThreadID   string
	Kind       EventKind
	Title      string
	Body       string
	Comment    string
	CommentID  string // set for replies; reaction target
	Actor      string
	DeliveryID string
}

// Ref identifies the reaction target for this event: the comment for
// replies, the thread itself for new threads.
func (e *Event) Ref() Ref {
	return Ref{ThreadID: e.ThreadID, CommentID: e.CommentID}
}

// Input returns the text handed to the reasoning engine as this turn's
// message: the comment body for replies, title plus body for new threads.
func (e *Event) Input() string {
	if e.Kind == KindReply {
		return e.Comment
	}
	if e.Body == "" {
		return e.Title
	}
	return e.Title + "\n\n" + e.Body
}

// rawEvent mirrors the wire shape of the platform's issue webhook payload.
type rawEvent struct {
	DeliveryID string `json:"delivery_id"`
	Issue      *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"issue"`
	Comment *struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// ParseEvent decodes a platform event payload into an Event.
// A payload with a comment section is a reply; one with only an issue
// section opens a new thread.
func ParseEvent(r io.Reader) (*Event, error) {
	var raw rawEvent
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding event payload: %w", err)
	}

	if raw.Issue == nil || raw.Issue.Number == 0 {
		return nil, ErrNoThread
	}

	ev := &Event{
		ThreadID:   strconv.Itoa(raw.Issue.Number),
		Kind:       KindNewThread,
		Title:      raw.Issue.Title,
		Body:       raw.Issue.Body,
		Actor:      raw.Sender.Login,
		DeliveryID: raw.DeliveryID,
	}
	if ev.Actor == "" {
		ev.Actor = raw.Issue.User.Login
	}

	if raw.Comment != nil {
		ev.Kind = KindReply
		ev.Comment = raw.Comment.Body
		ev.CommentID = strconv.FormatInt(raw.Comment.ID, 10)
		if raw.Comment.User.Login != "" {
			ev.Actor = raw.Comment.User.Login
		}
	}

	return ev, nil
}
