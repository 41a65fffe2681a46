// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/userdeck/pkg/errors"
	"github.com/tombee/userdeck/pkg/llm"
)

func testProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewAnthropicProvider("test-key")
	p.baseURL = srv.URL
	return p
}

func TestComplete_Success(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-haiku-20241022", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "hello back"}],
			"stop_reason": "end_turn"
		}`))
	})

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model: "claude-3-5-haiku-20241022",
		Messages: []llm.Message{
			{Role: llm.MessageRoleUser, Content: "hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Content)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
	assert.NotEmpty(t, resp.RequestID)
}

func TestComplete_ToolUse(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		tools, ok := body["tools"].([]any)
		require.True(t, ok, "tools must be forwarded")
		require.Len(t, tools, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_02",
			"model": "claude-3-5-haiku-20241022",
			"content": [
				{"type": "text", "text": "Creating the user now."},
				{"type": "tool_use", "id": "toolu_01", "name": "create-user",
				 "input": {"name": "Jane", "email": "jane@x.com"}}
			],
			"stop_reason": "tool_use"
		}`))
	})

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "create jane"}},
		Tools: []llm.Tool{
			{Name: "create-user", Description: "creates a user"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, llm.FinishReasonToolCalls, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "create-user", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"name": "Jane", "email": "jane@x.com"}`, resp.ToolCalls[0].Arguments)
}

func TestComplete_SystemMessageSeparated(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "you are terse", body["system"])

		msgs, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 1, "system message must not appear in messages")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m","model":"m","content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn"}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model: "m",
		Messages: []llm.Message{
			{Role: llm.MessageRoleSystem, Content: "you are terse"},
			{Role: llm.MessageRoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)
}

func TestComplete_APIError(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "m",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Contains(t, perr.Message, "invalid x-api-key")
	assert.NotEmpty(t, perr.Suggestion)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	p := NewAnthropicProvider("")

	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "m",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Suggestion, "ANTHROPIC_API_KEY")
}

func TestComplete_NoMessages(t *testing.T) {
	p := NewAnthropicProvider("test-key")

	_, err := p.Complete(context.Background(), llm.CompletionRequest{Model: "m"})
	require.Error(t, err)

	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "messages", verr.Field)
}
