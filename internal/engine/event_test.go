// ABOUTME: Tests for native stream-line decoding into the internal event schema.
// ABOUTME: Covers assistant blocks, tool exchanges, result markers, and unknown line types.

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func TestDecodeLine_AssistantTextAndToolUse(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[
		{"type":"text","text":"let me check"},
		{"type":"tool_use","id":"t1","name":"Read","input":{"path":"main.go"}}
	]}}`

	events, err := decodeLine([]byte(line), testTime)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, KindText, events[0].Kind)
	assert.Equal(t, "agent", events[0].Role)
	assert.Equal(t, "let me check", events[0].Text)

	assert.Equal(t, KindToolUse, events[1].Kind)
	assert.Equal(t, "Read", events[1].ToolName)
	assert.Equal(t, "t1", events[1].ToolID)
	assert.JSONEq(t, `{"path":"main.go"}`, string(events[1].ToolInput))
}

func TestDecodeLine_ToolResult(t *testing.T) {
	line := `{"type":"user","message":{"content":[
		{"type":"tool_result","tool_use_id":"t1","content":"package main","is_error":false}
	]}}`

	events, err := decodeLine([]byte(line), testTime)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, KindToolResult, events[0].Kind)
	assert.Equal(t, "tool", events[0].Role)
	assert.Equal(t, "t1", events[0].ToolID)
	assert.Equal(t, "package main", events[0].ToolOutput)
}

func TestDecodeLine_StructuredToolResultContent(t *testing.T) {
	line := `{"type":"user","message":{"content":[
		{"type":"tool_result","tool_use_id":"t2","content":[{"type":"text","text":"out"}]}
	]}}`

	events, err := decodeLine([]byte(line), testTime)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].ToolOutput, "out")
}

func TestDecodeLine_Result(t *testing.T) {
	line := `{"type":"result","subtype":"success","result":"hi there","is_error":false}`

	events, err := decodeLine([]byte(line), testTime)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, KindResult, events[0].Kind)
	assert.Equal(t, "hi there", events[0].Text)
	assert.False(t, events[0].IsError)
}

func TestDecodeLine_ErrorResult(t *testing.T) {
	line := `{"type":"result","subtype":"error","result":"","is_error":true}`

	events, err := decodeLine([]byte(line), testTime)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsError)
}

func TestDecodeLine_UnknownTypePreservedRaw(t *testing.T) {
	line := `{"type":"telemetry","tokens":123}`

	events, err := decodeLine([]byte(line), testTime)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, KindSystem, events[0].Kind)
	assert.JSONEq(t, line, string(events[0].Raw))
}

func TestDecodeLine_Malformed(t *testing.T) {
	_, err := decodeLine([]byte(`{truncated`), testTime)
	assert.Error(t, err)
}
