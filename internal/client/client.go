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

// Package client connects to the Userdeck MCP server over stdio and drives
// the interactive session. The Client wraps the MCP SDK connection; the
// Loop implements the menu-driven UI on top of it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolCallTimeout bounds a single tool call round trip.
const toolCallTimeout = 30 * time.Second

// ToolParam is one declared parameter of a server tool, extracted from the
// tool's input schema for interactive prompting.
type ToolParam struct {
	Name        string
	Kind        string
	Required    bool
	Description string
}

// ToolDefinition describes a tool advertised by the server.
type ToolDefinition struct {
	Name        string
	Description string

	// Schema is the raw JSON input schema, forwarded to the LLM for
	// model-directed tool use.
	Schema json.RawMessage

	// Params are the schema's properties, sorted by name.
	Params []ToolParam
}

// ToolResult is the outcome of a tool call.
type ToolResult struct {
	Text    string
	IsError bool
}

// ResourceDefinition describes a concrete resource advertised by the server.
type ResourceDefinition struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// ResourceTemplateDefinition describes a URI-template resource.
type ResourceTemplateDefinition struct {
	URITemplate string
	Name        string
	Description string
	MIMEType    string
}

// ResourceContent is one entry of a resource read result.
type ResourceContent struct {
	URI      string
	MIMEType string
	Text     string
}

// PromptArgument is one declared argument of a server prompt.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptDefinition describes a prompt advertised by the server.
type PromptDefinition struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// PromptMessage is one message of an expanded prompt.
type PromptMessage struct {
	Role string
	Text string
}

// Config configures the connection to the MCP server.
type Config struct {
	// Command is the server executable to spawn.
	Command string

	// Args are the command-line arguments for the server.
	Args []string

	// Env are extra environment variables for the server process.
	Env []string

	// SamplingHandler answers server-initiated sampling requests.
	// Optional; without it the server cannot use sampling-backed tools.
	SamplingHandler mcpclient.SamplingHandler
}

// Client wraps an MCP stdio connection to the Userdeck server.
type Client struct {
	client *mcpclient.Client
}

// Connect spawns the server process and performs the MCP handshake.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("server command is required")
	}

	stdio := transport.NewStdio(cfg.Command, cfg.Env, cfg.Args...)

	var opts []mcpclient.ClientOption
	if cfg.SamplingHandler != nil {
		opts = append(opts, mcpclient.WithSamplingHandler(cfg.SamplingHandler))
	}

	c := mcpclient.NewClient(stdio, opts...)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "userdeck",
				Version: "1.0.0",
			},
		},
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize MCP server: %w", err)
	}

	return &Client{client: c}, nil
}

// Close shuts down the connection and the server process.
func (c *Client) Close() error {
	return c.client.Close()
}

// ListTools retrieves the server's tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]ToolDefinition, 0, len(result.Tools))
	for _, tool := range result.Tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for %s: %w", tool.Name, err)
		}

		tools = append(tools, ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      schema,
			Params:      paramsFromSchema(schema),
		})
	}
	return tools, nil
}

// paramsFromSchema extracts prompt-friendly parameter descriptors from a
// JSON Schema object. Unknown shapes yield no params rather than an error.
func paramsFromSchema(schema json.RawMessage) []ToolParam {
	var parsed struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &parsed); err != nil {
		return nil
	}

	required := make(map[string]bool, len(parsed.Required))
	for _, name := range parsed.Required {
		required[name] = true
	}

	params := make([]ToolParam, 0, len(parsed.Properties))
	for name, prop := range parsed.Properties {
		params = append(params, ToolParam{
			Name:        name,
			Kind:        prop.Type,
			Required:    required[name],
			Description: prop.Description,
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

// CallTool executes a server tool and flattens the text content.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
	defer cancel()

	result, err := c.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}

	out := &ToolResult{IsError: result.IsError}
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += text.Text
		}
	}
	return out, nil
}

// ListResources retrieves the server's concrete resources.
func (c *Client) ListResources(ctx context.Context) ([]ResourceDefinition, error) {
	result, err := c.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	resources := make([]ResourceDefinition, 0, len(result.Resources))
	for _, r := range result.Resources {
		resources = append(resources, ResourceDefinition{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return resources, nil
}

// ListResourceTemplates retrieves the server's resource templates.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]ResourceTemplateDefinition, error) {
	result, err := c.client.ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resource templates: %w", err)
	}

	templates := make([]ResourceTemplateDefinition, 0, len(result.ResourceTemplates))
	for _, rt := range result.ResourceTemplates {
		templates = append(templates, ResourceTemplateDefinition{
			URITemplate: rt.URITemplate.Raw(),
			Name:        rt.Name,
			Description: rt.Description,
			MIMEType:    rt.MIMEType,
		})
	}
	return templates, nil
}

// ReadResource reads a resource by concrete URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	result, err := c.client.ReadResource(ctx, mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: uri},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read resource: %w", err)
	}

	contents := make([]ResourceContent, 0, len(result.Contents))
	for _, content := range result.Contents {
		if text, ok := mcp.AsTextResourceContents(content); ok {
			contents = append(contents, ResourceContent{
				URI:      text.URI,
				MIMEType: text.MIMEType,
				Text:     text.Text,
			})
		}
	}
	return contents, nil
}

// ListPrompts retrieves the server's prompt definitions.
func (c *Client) ListPrompts(ctx context.Context) ([]PromptDefinition, error) {
	result, err := c.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	prompts := make([]PromptDefinition, 0, len(result.Prompts))
	for _, p := range result.Prompts {
		args := make([]PromptArgument, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		prompts = append(prompts, PromptDefinition{
			Name:        p.Name,
			Description: p.Description,
			Arguments:   args,
		})
	}
	return prompts, nil
}

// GetPrompt expands a server prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) ([]PromptMessage, error) {
	result, err := c.client.GetPrompt(ctx, mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}

	messages := make([]PromptMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		if text, ok := mcp.AsTextContent(m.Content); ok {
			messages = append(messages, PromptMessage{
				Role: string(m.Role),
				Text: text.Text,
			})
		}
	}
	return messages, nil
}
