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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/tombee/userdeck/internal/log"
)

// samplingTimeout bounds a sampling round trip through the connected
// client, which in turn calls out to an LLM.
const samplingTimeout = 120 * time.Second

// Sampler requests a text completion from the connected MCP client.
// Tools depend on this interface so tests can substitute a fake without a
// live session.
type Sampler interface {
	Sample(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// sessionSampler issues sampling requests through the client session
// carried in the request context.
type sessionSampler struct {
	logger *slog.Logger
}

func (ss *sessionSampler) Sample(ctx context.Context, prompt string, maxTokens int) (string, error) {
	srv := mcpserver.ServerFromContext(ctx)
	if srv == nil {
		return "", fmt.Errorf("no server session in context")
	}

	ctx, cancel := context.WithTimeout(ctx, samplingTimeout)
	defer cancel()

	start := time.Now()
	result, err := srv.RequestSampling(ctx, mcp.CreateMessageRequest{
		CreateMessageParams: mcp.CreateMessageParams{
			Messages: []mcp.SamplingMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: prompt},
				},
			},
			MaxTokens: maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("sampling request failed: %w", err)
	}

	text, ok := mcp.AsTextContent(result.Content)
	if !ok {
		return "", fmt.Errorf("sampling returned non-text content")
	}

	if ss.logger != nil {
		ss.logger.Debug("sampling completed",
			log.String("model", result.Model),
			log.Duration("duration", time.Since(start).Milliseconds()))
	}

	return text.Text, nil
}
