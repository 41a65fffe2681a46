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

package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/userdeck/pkg/llm"
)

func samplingRequest(text string, maxTokens int) mcp.CreateMessageRequest {
	return mcp.CreateMessageRequest{
		CreateMessageParams: mcp.CreateMessageParams{
			Messages: []mcp.SamplingMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: text},
				},
			},
			MaxTokens: maxTokens,
		},
	}
}

func TestSamplingHandler_Success(t *testing.T) {
	provider := &fakeProvider{
		responses: []*llm.CompletionResponse{
			{
				Content:      `{"name": "Ada"}`,
				Model:        "claude-3-5-haiku-20241022",
				FinishReason: llm.FinishReasonStop,
			},
		},
	}
	h := NewLLMSamplingHandler(provider, "claude-3-5-haiku-20241022", nil)

	result, err := h.CreateMessage(context.Background(), samplingRequest("generate a user", 512))
	require.NoError(t, err)

	text, ok := mcp.AsTextContent(result.Content)
	require.True(t, ok)
	assert.Equal(t, `{"name": "Ada"}`, text.Text)
	assert.Equal(t, mcp.RoleAssistant, result.Role)
	assert.Equal(t, "endTurn", result.StopReason)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "claude-3-5-haiku-20241022", req.Model)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 512, *req.MaxTokens)
	assert.Equal(t, "generate a user", req.Messages[0].Content)
}

func TestSamplingHandler_MaxTokensStopReason(t *testing.T) {
	provider := &fakeProvider{
		responses: []*llm.CompletionResponse{
			{Content: "truncated", FinishReason: llm.FinishReasonLength},
		},
	}
	h := NewLLMSamplingHandler(provider, "m", nil)

	result, err := h.CreateMessage(context.Background(), samplingRequest("go", 8))
	require.NoError(t, err)
	assert.Equal(t, "maxTokens", result.StopReason)
}

func TestSamplingHandler_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("boom")}
	h := NewLLMSamplingHandler(provider, "m", nil)

	_, err := h.CreateMessage(context.Background(), samplingRequest("go", 8))
	require.Error(t, err)
}
