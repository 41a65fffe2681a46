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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tombee/userdeck/internal/cli/prompt"
	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/pkg/llm"
)

// Menu entries for the top-level loop.
const (
	menuQuery     = "Query"
	menuTools     = "Tools"
	menuResources = "Resources"
	menuPrompts   = "Prompts"
	menuQuit      = "Quit"
)

// maxToolRounds caps the number of model-directed tool rounds per query so
// a confused model cannot loop forever.
const maxToolRounds = 3

// placeholderPattern matches {name} placeholders in resource URI templates.
var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// Peer is the subset of the MCP client the loop depends on. Tests
// substitute a fake Peer to drive the loop without a server process.
type Peer interface {
	ListTools(ctx context.Context) ([]ToolDefinition, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error)
	ListResources(ctx context.Context) ([]ResourceDefinition, error)
	ListResourceTemplates(ctx context.Context) ([]ResourceTemplateDefinition, error)
	ReadResource(ctx context.Context, uri string) ([]ResourceContent, error)
	ListPrompts(ctx context.Context) ([]PromptDefinition, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) ([]PromptMessage, error)
}

// Loop is the interactive menu session.
type Loop struct {
	peer     Peer
	prompter prompt.Prompter
	provider llm.Provider
	model    string
	out      io.Writer
	logger   *slog.Logger
}

// NewLoop creates the interactive session.
func NewLoop(peer Peer, prompter prompt.Prompter, provider llm.Provider, model string, out io.Writer, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		peer:     peer,
		prompter: prompter,
		provider: provider,
		model:    model,
		out:      out,
		logger:   log.WithComponent(logger, "loop"),
	}
}

// Run shows the top-level menu until the user quits or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	fmt.Fprintln(l.out, titleStyle.Render("You are connected!"))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		choice, err := l.prompter.PromptSelect(ctx, "What would you like to do",
			[]string{menuQuery, menuTools, menuResources, menuPrompts, menuQuit})
		if err != nil {
			return err
		}

		switch choice {
		case menuQuery:
			err = l.runQuery(ctx)
		case menuTools:
			err = l.runTools(ctx)
		case menuResources:
			err = l.runResources(ctx)
		case menuPrompts:
			err = l.runPrompts(ctx)
		case menuQuit:
			return nil
		}

		if err != nil {
			// Session-level failures (prompter closed, ctx cancelled) end
			// the loop; per-action failures were already reported.
			return err
		}
	}
}

// runTools lists server tools, collects arguments, and invokes the chosen
// tool.
func (l *Loop) runTools(ctx context.Context) error {
	tools, err := l.peer.ListTools(ctx)
	if err != nil {
		l.reportError("failed to list tools", err)
		return nil
	}
	if len(tools) == 0 {
		fmt.Fprintln(l.out, dimStyle.Render("No tools available."))
		return nil
	}

	names := make([]string, 0, len(tools))
	byName := make(map[string]ToolDefinition, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
		byName[t.Name] = t
	}

	name, err := l.prompter.PromptSelect(ctx, "Select a tool", names)
	if err != nil {
		return err
	}
	tool := byName[name]

	args := make(map[string]any, len(tool.Params))
	for _, p := range tool.Params {
		value, err := l.prompter.PromptString(ctx, p.Name, p.Description)
		if err != nil {
			return err
		}
		args[p.Name] = value
	}

	result, err := l.peer.CallTool(ctx, name, args)
	if err != nil {
		l.reportError("tool call failed", err)
		return nil
	}

	if result.IsError {
		fmt.Fprintln(l.out, errorStyle.Render(result.Text))
	} else {
		fmt.Fprintln(l.out, result.Text)
	}
	return nil
}

// runResources lists concrete resources and templates, fills template
// placeholders interactively, and prints the resource content.
func (l *Loop) runResources(ctx context.Context) error {
	resources, err := l.peer.ListResources(ctx)
	if err != nil {
		l.reportError("failed to list resources", err)
		return nil
	}
	templates, err := l.peer.ListResourceTemplates(ctx)
	if err != nil {
		l.reportError("failed to list resource templates", err)
		return nil
	}

	options := make([]string, 0, len(resources)+len(templates))
	for _, r := range resources {
		options = append(options, r.URI)
	}
	for _, t := range templates {
		options = append(options, t.URITemplate)
	}
	if len(options) == 0 {
		fmt.Fprintln(l.out, dimStyle.Render("No resources available."))
		return nil
	}

	uri, err := l.prompter.PromptSelect(ctx, "Select a resource", options)
	if err != nil {
		return err
	}

	uri, err = l.fillPlaceholders(ctx, uri)
	if err != nil {
		return err
	}

	contents, err := l.peer.ReadResource(ctx, uri)
	if err != nil {
		l.reportError("failed to read resource", err)
		return nil
	}

	for _, c := range contents {
		fmt.Fprintln(l.out, renderJSON(c.Text))
	}
	return nil
}

// fillPlaceholders substitutes each {name} placeholder in a URI template
// with a prompted value.
func (l *Loop) fillPlaceholders(ctx context.Context, uri string) (string, error) {
	for _, match := range placeholderPattern.FindAllStringSubmatch(uri, -1) {
		value, err := l.prompter.PromptString(ctx, match[1], "")
		if err != nil {
			return "", err
		}
		uri = strings.Replace(uri, match[0], value, 1)
	}
	return uri, nil
}

// runPrompts lists server prompts, expands the chosen one, and runs each
// expanded message through the LLM after confirmation.
func (l *Loop) runPrompts(ctx context.Context) error {
	prompts, err := l.peer.ListPrompts(ctx)
	if err != nil {
		l.reportError("failed to list prompts", err)
		return nil
	}
	if len(prompts) == 0 {
		fmt.Fprintln(l.out, dimStyle.Render("No prompts available."))
		return nil
	}

	names := make([]string, 0, len(prompts))
	byName := make(map[string]PromptDefinition, len(prompts))
	for _, p := range prompts {
		names = append(names, p.Name)
		byName[p.Name] = p
	}

	name, err := l.prompter.PromptSelect(ctx, "Select a prompt", names)
	if err != nil {
		return err
	}

	args := make(map[string]string)
	for _, a := range byName[name].Arguments {
		value, err := l.prompter.PromptString(ctx, a.Name, a.Description)
		if err != nil {
			return err
		}
		args[a.Name] = value
	}

	messages, err := l.peer.GetPrompt(ctx, name, args)
	if err != nil {
		l.reportError("failed to get prompt", err)
		return nil
	}

	for _, m := range messages {
		fmt.Fprintln(l.out, dimStyle.Render(m.Text))

		run, err := l.prompter.PromptConfirm(ctx, "Would you like to run the above prompt", true)
		if err != nil {
			return err
		}
		if !run {
			continue
		}

		l.answer(ctx, m.Text)
	}
	return nil
}

// runQuery collects a free-form question and answers it with the LLM,
// letting the model call server tools.
func (l *Loop) runQuery(ctx context.Context) error {
	query, err := l.prompter.PromptString(ctx, "Enter your query", "")
	if err != nil {
		return err
	}

	l.answer(ctx, query)
	return nil
}

// answer runs one LLM conversation with model-directed tool use. Provider
// failures degrade to a printed notice so the menu keeps running without
// credentials.
func (l *Loop) answer(ctx context.Context, query string) {
	tools, err := l.peer.ListTools(ctx)
	if err != nil {
		l.reportError("failed to list tools", err)
		return
	}

	llmTools := make([]llm.Tool, 0, len(tools))
	for _, t := range tools {
		var schema map[string]interface{}
		if err := json.Unmarshal(t.Schema, &schema); err != nil {
			schema = map[string]interface{}{"type": "object"}
		}
		llmTools = append(llmTools, llm.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	messages := []llm.Message{
		{Role: llm.MessageRoleUser, Content: query},
	}

	for round := 0; round <= maxToolRounds; round++ {
		resp, err := l.provider.Complete(ctx, llm.CompletionRequest{
			Messages: messages,
			Model:    l.model,
			Tools:    llmTools,
		})
		if err != nil {
			l.logger.Warn("completion failed", log.Error(err))
			fmt.Fprintln(l.out, dimStyle.Render("No text generated."))
			return
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				fmt.Fprintln(l.out, dimStyle.Render("No text generated."))
			} else {
				fmt.Fprintln(l.out, answerStyle.Render(resp.Content))
			}
			return
		}

		messages = append(messages, llm.Message{
			Role:      llm.MessageRoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				args = map[string]any{}
			}

			l.logger.Debug("model requested tool",
				log.String(log.ToolKey, call.Name))

			result, err := l.peer.CallTool(ctx, call.Name, args)
			content := ""
			switch {
			case err != nil:
				content = fmt.Sprintf("tool call failed: %v", err)
			default:
				content = result.Text
			}

			messages = append(messages, llm.Message{
				Role:       llm.MessageRoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}

	fmt.Fprintln(l.out, dimStyle.Render("No text generated."))
}

func (l *Loop) reportError(msg string, err error) {
	l.logger.Error(msg, log.Error(err))
	fmt.Fprintln(l.out, errorStyle.Render(fmt.Sprintf("%s: %v", msg, err)))
}
