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
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/pkg/llm"
)

// LLMSamplingHandler answers server-initiated sampling requests with the
// configured completion provider. The server never sees the API key; it
// only receives generated text.
type LLMSamplingHandler struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// NewLLMSamplingHandler creates a sampling handler backed by provider.
func NewLLMSamplingHandler(provider llm.Provider, model string, logger *slog.Logger) *LLMSamplingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSamplingHandler{
		provider: provider,
		model:    model,
		logger:   log.WithComponent(logger, "sampling"),
	}
}

// CreateMessage implements the MCP sampling handler interface.
func (h *LLMSamplingHandler) CreateMessage(ctx context.Context, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
	messages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		text, ok := mcp.AsTextContent(m.Content)
		if !ok {
			return nil, fmt.Errorf("sampling request contains non-text content")
		}

		role := llm.MessageRoleUser
		if m.Role == mcp.RoleAssistant {
			role = llm.MessageRoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: text.Text})
	}

	llmReq := llm.CompletionRequest{
		Messages: messages,
		Model:    h.model,
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		llmReq.MaxTokens = &maxTokens
	}

	h.logger.Debug("answering sampling request",
		log.String(log.ProviderKey, h.provider.Name()),
		log.Int("messages", len(messages)))

	resp, err := h.provider.Complete(ctx, llmReq)
	if err != nil {
		h.logger.Error("sampling completion failed", log.Error(err))
		return nil, err
	}

	return &mcp.CreateMessageResult{
		SamplingMessage: mcp.SamplingMessage{
			Role:    mcp.RoleAssistant,
			Content: mcp.TextContent{Type: "text", Text: resp.Content},
		},
		Model:      resp.Model,
		StopReason: stopReasonFor(resp.FinishReason),
	}, nil
}

// stopReasonFor maps a provider finish reason onto the protocol's
// stopReason vocabulary.
func stopReasonFor(reason llm.FinishReason) string {
	switch reason {
	case llm.FinishReasonLength:
		return "maxTokens"
	default:
		return "endTurn"
	}
}
