// ABOUTME: Internal event schema for the reasoning engine's streamed output.
// ABOUTME: Decodes the engine's native stream-json lines into typed events on receipt.

package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies a stream event.
type Kind string

const (
	KindSystem     Kind = "system"      // engine lifecycle chatter
	KindText       Kind = "text"        // a textual delta from the engine
	KindToolUse    Kind = "tool_use"    // tool invocation
	KindToolResult Kind = "tool_result" // tool output
	KindResult     Kind = "result"      // end-of-turn marker carrying the final message
	KindError      Kind = "error"       // engine-reported error
)

// Event is one record in a conversation: a human input, an engine output,
// or a tool exchange. The driver translates the engine's native wire format
// into this schema immediately on receipt; nothing downstream sees the
// engine's own shapes.
type Event struct {
	Kind       Kind            `json:"kind"`
	Role       string          `json:"role"` // "human", "agent", "tool"
	Timestamp  time.Time       `json:"timestamp"`
	Text       string          `json:"text,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolID     string          `json:"tool_id,omitempty"`
	ToolInput  json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput string          `json:"tool_output,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"` // unrecognized engine payloads, preserved verbatim
}

// HumanEvent builds the turn-opening record for the human's input.
func HumanEvent(text string, at time.Time) Event {
	return Event{Kind: KindText, Role: "human", Timestamp: at, Text: text}
}

// streamLine mirrors the engine's native stream-json line shape.
type streamLine struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Error   string `json:"error"`
	Message *struct {
		Content []struct {
			Type      string          `json:"type"`
			Text      string          `json:"text"`
			ID        string          `json:"id"`
			Name      string          `json:"name"`
			Input     json.RawMessage `json:"input"`
			ToolUseID string          `json:"tool_use_id"`
			Content   json.RawMessage `json:"content"`
			IsError   bool            `json:"is_error"`
		} `json:"content"`
	} `json:"message"`
}

// decodeLine translates one native stream line into internal events. An
// assistant message can carry several content blocks, so one line may
// produce several events. Unknown line types are preserved as system
// events with the raw payload attached.
func decodeLine(line []byte, at time.Time) ([]Event, error) {
	var raw streamLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("malformed stream line: %w", err)
	}

	switch raw.Type {
	case "system":
		return []Event{{Kind: KindSystem, Role: "agent", Timestamp: at, Raw: cloneRaw(line)}}, nil

	case "assistant":
		var events []Event
		if raw.Message != nil {
			for _, block := range raw.Message.Content {
				switch block.Type {
				case "text":
					events = append(events, Event{
						Kind: KindText, Role: "agent", Timestamp: at, Text: block.Text,
					})
				case "tool_use":
					events = append(events, Event{
						Kind: KindToolUse, Role: "agent", Timestamp: at,
						ToolName: block.Name, ToolID: block.ID, ToolInput: block.Input,
					})
				}
			}
		}
		return events, nil

	case "user":
		var events []Event
		if raw.Message != nil {
			for _, block := range raw.Message.Content {
				if block.Type == "tool_result" {
					events = append(events, Event{
						Kind: KindToolResult, Role: "tool", Timestamp: at,
						ToolID: block.ToolUseID, ToolOutput: flattenToolContent(block.Content),
						IsError: block.IsError,
					})
				}
			}
		}
		return events, nil

	case "result":
		ev := Event{
			Kind: KindResult, Role: "agent", Timestamp: at,
			Text: raw.Result, IsError: raw.IsError || raw.Subtype == "error",
		}
		return []Event{ev}, nil

	case "error":
		return []Event{{Kind: KindError, Role: "agent", Timestamp: at, Text: raw.Error}}, nil

	default:
		return []Event{{Kind: KindSystem, Role: "agent", Timestamp: at, Raw: cloneRaw(line)}}, nil
	}
}

// flattenToolContent renders a tool result's content, which the engine
// emits either as a bare string or as structured blocks.
func flattenToolContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// cloneRaw copies a scanner-owned line so the event can outlive the buffer.
func cloneRaw(line []byte) json.RawMessage {
	out := make([]byte, len(line))
	copy(out, line)
	return out
}
