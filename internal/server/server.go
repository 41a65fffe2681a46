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

// Package server hosts the Userdeck MCP server. It binds the capability
// registry onto the MCP SDK and serves the stdio transport; protocol
// framing, handshake, and dispatch stay inside the SDK.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/internal/registry"
	"github.com/tombee/userdeck/internal/store"
)

const (
	serverName    = "userdeck"
	serverVersion = "1.0.0"

	// toolTimeout bounds a single tool invocation, including any sampling
	// round trip it performs.
	toolTimeout = 30 * time.Second
)

// Config holds the server configuration.
type Config struct {
	// UsersFile is the path to the JSON user record file.
	UsersFile string

	// Logger receives structured logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the Userdeck MCP server.
type Server struct {
	mcp      *mcpserver.MCPServer
	registry *registry.Registry
	store    *store.Store
	logger   *slog.Logger
}

// New creates a Server with all capabilities registered.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = log.WithComponent(logger, "server")

	st := store.New(cfg.UsersFile, logger)
	reg := registry.New(logger)

	s := &Server{
		mcp: mcpserver.NewMCPServer(
			serverName,
			serverVersion,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, true),
			mcpserver.WithPromptCapabilities(true),
			mcpserver.WithRecovery(),
		),
		registry: reg,
		store:    st,
		logger:   logger,
	}
	s.mcp.EnableSampling()

	if err := registerUserCapabilities(reg, st, &sessionSampler{logger: logger}, logger); err != nil {
		return nil, err
	}
	s.bind()

	return s, nil
}

// Registry exposes the capability registry, mainly for tests.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Run serves the stdio transport until the client disconnects or ctx is
// cancelled. Logs go to stderr; stdout belongs to the protocol.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio",
		log.String("file", s.store.Path()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(s.mcp)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// bind projects every registry descriptor onto the MCP SDK server.
func (s *Server) bind() {
	for _, t := range s.registry.Tools() {
		s.mcp.AddTool(toolToMCP(t), s.toolHandler(t.Name))
	}

	for _, r := range s.registry.Resources() {
		s.mcp.AddResource(
			mcp.NewResource(r.URI, r.Name,
				mcp.WithResourceDescription(r.Description),
				mcp.WithMIMEType(r.MIMEType),
			),
			s.resourceHandler(),
		)
	}

	for _, rt := range s.registry.ResourceTemplates() {
		s.mcp.AddResourceTemplate(
			mcp.NewResourceTemplate(rt.URITemplate, rt.Name,
				mcp.WithTemplateDescription(rt.Description),
				mcp.WithTemplateMIMEType(rt.MIMEType),
			),
			s.resourceHandler(),
		)
	}

	for _, p := range s.registry.Prompts() {
		s.mcp.AddPrompt(promptToMCP(p), s.promptHandler(p.Name))
	}
}

// toolToMCP converts a registry tool descriptor to the SDK's tool type.
func toolToMCP(t registry.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		var propOpts []mcp.PropertyOption
		if p.Description != "" {
			propOpts = append(propOpts, mcp.Description(p.Description))
		}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Kind {
		case registry.ParamNumber:
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case registry.ParamBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// promptToMCP converts a registry prompt descriptor to the SDK's prompt type.
func promptToMCP(p registry.Prompt) mcp.Prompt {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(p.Description)}
	for _, a := range p.Args {
		var argOpts []mcp.ArgumentOption
		if a.Description != "" {
			argOpts = append(argOpts, mcp.ArgumentDescription(a.Description))
		}
		if a.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(a.Name, argOpts...))
	}
	return mcp.NewPrompt(p.Name, opts...)
}

func (s *Server) toolHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		start := time.Now()
		result, err := s.registry.CallTool(ctx, name, req.GetArguments())
		if err != nil {
			s.logger.Warn("tool call rejected",
				log.String(log.ToolKey, name),
				log.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		s.logger.Debug("tool call finished",
			log.String(log.ToolKey, name),
			slog.Bool("failed", result.Failed),
			log.Duration("duration", time.Since(start).Milliseconds()))

		if result.Failed {
			return mcp.NewToolResultError(result.Text), nil
		}
		return mcp.NewToolResultText(result.Text), nil
	}
}

// resourceHandler serves both concrete resources and templates; the
// registry resolves the URI either way.
func (s *Server) resourceHandler() func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := req.Params.URI

		contents, err := s.registry.ReadResource(ctx, uri)
		if err != nil {
			s.logger.Warn("resource read failed",
				log.String(log.ResourceKey, uri),
				log.Error(err))
			return nil, err
		}

		out := make([]mcp.ResourceContents, 0, len(contents))
		for _, c := range contents {
			out = append(out, mcp.TextResourceContents{
				URI:      c.URI,
				MIMEType: c.MIMEType,
				Text:     c.Text,
			})
		}
		return out, nil
	}
}

func (s *Server) promptHandler(name string) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		msgs, err := s.registry.GetPrompt(ctx, name, req.Params.Arguments)
		if err != nil {
			s.logger.Warn("prompt request failed",
				log.String(log.PromptKey, name),
				log.Error(err))
			return nil, err
		}

		out := make([]mcp.PromptMessage, 0, len(msgs))
		for _, m := range msgs {
			role := mcp.RoleUser
			if m.Role == registry.RoleAssistant {
				role = mcp.RoleAssistant
			}
			out = append(out, mcp.NewPromptMessage(role, mcp.NewTextContent(m.Text)))
		}
		return mcp.NewGetPromptResult(fmt.Sprintf("Prompt %s", name), out), nil
	}
}

// prettyJSON renders v as indented JSON for resource payloads.
func prettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
