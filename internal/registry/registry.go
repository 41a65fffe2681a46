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

// Package registry holds the server's capability tables: tools, resources,
// resource templates, and prompts. The registry is an explicit object built
// at startup and immutable afterwards, so multiple registries (e.g., in
// tests) coexist without interference.
//
// Names are unique per kind. A collision fails registration with a
// DuplicateNameError instead of silently overwriting.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tombee/userdeck/pkg/errors"
	"github.com/yosida95/uritemplate/v3"
)

// ParamKind is the declared type of a tool parameter.
// Only scalar kinds are supported; validation is type-only.
type ParamKind string

const (
	ParamString  ParamKind = "string"
	ParamNumber  ParamKind = "number"
	ParamBoolean ParamKind = "boolean"
)

// ParamSpec describes one tool parameter. Specs are resolved once at
// registration time, not re-derived per call.
type ParamSpec struct {
	Name        string
	Kind        ParamKind
	Required    bool
	Description string
}

// ToolHandler executes a tool. Execution failures are expressed as a
// Failure Result, not an error: tool errors are data, not faults.
type ToolHandler func(ctx context.Context, args map[string]any) Result

// Tool is a registered tool descriptor.
type Tool struct {
	Name        string
	Description string
	Params      []ParamSpec
	Handler     ToolHandler
}

// ResourceContent is one entry of a resource read result.
type ResourceContent struct {
	URI      string
	MIMEType string
	Text     string
}

// ResourceHandler serves a resource read. uri is the concrete URI requested;
// vars holds the placeholder bindings extracted from it (empty for concrete
// resources).
type ResourceHandler func(ctx context.Context, uri string, vars map[string]string) ([]ResourceContent, error)

// Resource is a registered concrete-URI resource descriptor.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Handler     ResourceHandler
}

// ResourceTemplate is a registered URI-template resource descriptor.
// The template follows RFC 6570 level 1 ({name} placeholders only).
type ResourceTemplate struct {
	URITemplate string
	Name        string
	Description string
	MIMEType    string
	Handler     ResourceHandler

	tmpl *uritemplate.Template
}

// ArgSpec describes one prompt argument.
type ArgSpec struct {
	Name        string
	Required    bool
	Description string
}

// Message is a single prompt message.
type Message struct {
	Role string
	Text string
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt is a registered prompt descriptor. Template is plain text with
// {argName} placeholders filled from the caller's arguments.
type Prompt struct {
	Name        string
	Description string
	Args        []ArgSpec
	Template    string
}

// Registry holds the three capability tables. Not safe for concurrent
// registration; build it fully before serving.
type Registry struct {
	tools     map[string]*Tool
	toolOrder []string

	resources     map[string]*Resource
	resourceOrder []string

	templates     map[string]*ResourceTemplate
	templateOrder []string

	prompts     map[string]*Prompt
	promptOrder []string

	logger *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:     make(map[string]*Tool),
		resources: make(map[string]*Resource),
		templates: make(map[string]*ResourceTemplate),
		prompts:   make(map[string]*Prompt),
		logger:    logger,
	}
}

// RegisterTool adds a tool descriptor.
func (r *Registry) RegisterTool(t Tool) error {
	if t.Name == "" {
		return &errors.ValidationError{Field: "name", Message: "tool name is required"}
	}
	if t.Handler == nil {
		return &errors.ValidationError{Field: "handler", Message: "tool handler is required"}
	}
	if _, exists := r.tools[t.Name]; exists {
		return &errors.DuplicateNameError{Kind: "tool", Name: t.Name}
	}

	r.tools[t.Name] = &t
	r.toolOrder = append(r.toolOrder, t.Name)
	return nil
}

// RegisterResource adds a concrete-URI resource descriptor.
func (r *Registry) RegisterResource(res Resource) error {
	if res.URI == "" {
		return &errors.ValidationError{Field: "uri", Message: "resource URI is required"}
	}
	if res.Handler == nil {
		return &errors.ValidationError{Field: "handler", Message: "resource handler is required"}
	}
	if _, exists := r.resources[res.URI]; exists {
		return &errors.DuplicateNameError{Kind: "resource", Name: res.URI}
	}

	r.resources[res.URI] = &res
	r.resourceOrder = append(r.resourceOrder, res.URI)
	return nil
}

// RegisterResourceTemplate adds a URI-template resource descriptor.
// The template is compiled once here.
func (r *Registry) RegisterResourceTemplate(rt ResourceTemplate) error {
	if rt.URITemplate == "" {
		return &errors.ValidationError{Field: "uriTemplate", Message: "resource URI template is required"}
	}
	if rt.Handler == nil {
		return &errors.ValidationError{Field: "handler", Message: "resource handler is required"}
	}
	if _, exists := r.templates[rt.URITemplate]; exists {
		return &errors.DuplicateNameError{Kind: "resource template", Name: rt.URITemplate}
	}

	tmpl, err := uritemplate.New(rt.URITemplate)
	if err != nil {
		return &errors.ValidationError{
			Field:   "uriTemplate",
			Message: fmt.Sprintf("invalid URI template %q: %v", rt.URITemplate, err),
		}
	}
	rt.tmpl = tmpl

	r.templates[rt.URITemplate] = &rt
	r.templateOrder = append(r.templateOrder, rt.URITemplate)
	return nil
}

// RegisterPrompt adds a prompt descriptor.
func (r *Registry) RegisterPrompt(p Prompt) error {
	if p.Name == "" {
		return &errors.ValidationError{Field: "name", Message: "prompt name is required"}
	}
	if _, exists := r.prompts[p.Name]; exists {
		return &errors.DuplicateNameError{Kind: "prompt", Name: p.Name}
	}

	r.prompts[p.Name] = &p
	r.promptOrder = append(r.promptOrder, p.Name)
	return nil
}

// Tools returns all tool descriptors in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, *r.tools[name])
	}
	return out
}

// Resources returns all concrete resource descriptors in registration order.
func (r *Registry) Resources() []Resource {
	out := make([]Resource, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		out = append(out, *r.resources[uri])
	}
	return out
}

// ResourceTemplates returns all template descriptors in registration order.
func (r *Registry) ResourceTemplates() []ResourceTemplate {
	out := make([]ResourceTemplate, 0, len(r.templateOrder))
	for _, uri := range r.templateOrder {
		out = append(out, *r.templates[uri])
	}
	return out
}

// Prompts returns all prompt descriptors in registration order.
func (r *Registry) Prompts() []Prompt {
	out := make([]Prompt, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		out = append(out, *r.prompts[name])
	}
	return out
}

// CallTool validates args against the tool's declared parameters and invokes
// the handler. An unknown name is a NotFoundError and a bad argument is a
// ValidationError; a handler failure comes back as a Failure Result.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	tool, ok := r.tools[name]
	if !ok {
		return Result{}, &errors.NotFoundError{Resource: "tool", ID: name}
	}

	if err := validateArgs(tool.Params, args); err != nil {
		return Result{}, err
	}

	return tool.Handler(ctx, args), nil
}

// ReadResource resolves the concrete URI against registered resources first,
// then against templates in registration order, extracting placeholder
// bindings from the URI. No match is a NotFoundError.
func (r *Registry) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	if res, ok := r.resources[uri]; ok {
		return res.Handler(ctx, uri, nil)
	}

	for _, key := range r.templateOrder {
		rt := r.templates[key]
		values := rt.tmpl.Match(uri)
		if values == nil {
			continue
		}

		vars := make(map[string]string, len(values))
		for name, v := range values {
			vars[name] = v.String()
		}
		return rt.Handler(ctx, uri, vars)
	}

	return nil, &errors.NotFoundError{Resource: "resource", ID: uri}
}

// GetPrompt fills the named prompt's template with args and returns the
// message sequence (a single user-role message in this design).
func (r *Registry) GetPrompt(ctx context.Context, name string, args map[string]string) ([]Message, error) {
	p, ok := r.prompts[name]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "prompt", ID: name}
	}

	text := p.Template
	for _, spec := range p.Args {
		value, present := args[spec.Name]
		if !present || value == "" {
			if spec.Required {
				return nil, &errors.ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("required argument for prompt %q is missing", name),
				}
			}
			continue
		}
		text = strings.ReplaceAll(text, "{"+spec.Name+"}", value)
	}

	return []Message{{Role: RoleUser, Text: text}}, nil
}

// validateArgs performs type-only checking of args against declared params.
// Unknown extra arguments are ignored, matching the permissive protocol
// convention.
func validateArgs(params []ParamSpec, args map[string]any) error {
	for _, p := range params {
		value, present := args[p.Name]
		if !present {
			if p.Required {
				return &errors.ValidationError{
					Field:      p.Name,
					Message:    "required parameter is missing",
					Suggestion: fmt.Sprintf("Supply a %s value for %q", p.Kind, p.Name),
				}
			}
			continue
		}

		if !kindMatches(p.Kind, value) {
			return &errors.ValidationError{
				Field:   p.Name,
				Message: fmt.Sprintf("expected %s, got %T", p.Kind, value),
			}
		}
	}
	return nil
}

// kindMatches reports whether a decoded JSON value satisfies the declared
// kind. JSON numbers decode as float64; ints are accepted for callers that
// build args in-process.
func kindMatches(kind ParamKind, value any) bool {
	switch kind {
	case ParamString:
		_, ok := value.(string)
		return ok
	case ParamNumber:
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case ParamBoolean:
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}
