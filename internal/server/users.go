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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/internal/registry"
	"github.com/tombee/userdeck/internal/store"
	"github.com/tombee/userdeck/pkg/errors"
)

// User-facing tool messages. The failure strings double as the model-visible
// tool output, so they stay short and stable.
const (
	msgSaveFailed     = "Failed to save user"
	msgGenerateFailed = "Failed to generate user data"
)

// fakeUserPrompt is the sampling prompt for create-random-user. It demands
// bare JSON so the response parses without post-processing beyond fence
// stripping.
const fakeUserPrompt = "Generate fake user data. The user should have a realistic name, " +
	"email, address, and phone number. Return this data as a JSON object with no " +
	"other text or formatting so it can be parsed as JSON with a name, email, " +
	"address, and phone field."

// fakeUserPromptTemplate backs the generate-fake-user prompt.
const fakeUserPromptTemplate = "Generate a fake user with the name {name}. " +
	"The user should have a realistic email, address, and phone number."

// samplingMaxTokens bounds the sampled completion for random user data.
const samplingMaxTokens = 1024

// registerUserCapabilities installs the user management tools, resources,
// and prompts into the registry.
func registerUserCapabilities(reg *registry.Registry, st *store.Store, sampler Sampler, logger *slog.Logger) error {
	caps := &userCapabilities{store: st, sampler: sampler, logger: logger}

	if err := reg.RegisterTool(registry.Tool{
		Name:        "create-user",
		Description: "Create a new user in the database",
		Params: []registry.ParamSpec{
			{Name: "name", Kind: registry.ParamString, Required: true, Description: "The user's full name"},
			{Name: "email", Kind: registry.ParamString, Required: true, Description: "The user's email address"},
			{Name: "address", Kind: registry.ParamString, Required: true, Description: "The user's street address"},
			{Name: "phone", Kind: registry.ParamString, Required: true, Description: "The user's phone number"},
		},
		Handler: caps.createUser,
	}); err != nil {
		return err
	}

	if err := reg.RegisterTool(registry.Tool{
		Name:        "create-random-user",
		Description: "Create a random user with fake data",
		Handler:     caps.createRandomUser,
	}); err != nil {
		return err
	}

	if err := reg.RegisterResource(registry.Resource{
		URI:         "users://all",
		Name:        "users",
		Description: "Get all users data from the database",
		MIMEType:    "application/json",
		Handler:     caps.allUsers,
	}); err != nil {
		return err
	}

	if err := reg.RegisterResourceTemplate(registry.ResourceTemplate{
		URITemplate: "users://{userId}/profile",
		Name:        "user-details",
		Description: "Get a user's details from the database",
		MIMEType:    "application/json",
		Handler:     caps.userProfile,
	}); err != nil {
		return err
	}

	return reg.RegisterPrompt(registry.Prompt{
		Name:        "generate-fake-user",
		Description: "Generate a fake user based on a given name",
		Args: []registry.ArgSpec{
			{Name: "name", Required: true, Description: "Name of the user"},
		},
		Template: fakeUserPromptTemplate,
	})
}

type userCapabilities struct {
	store   *store.Store
	sampler Sampler
	logger  *slog.Logger
}

// createUser persists a user from explicit field values.
func (c *userCapabilities) createUser(ctx context.Context, args map[string]any) registry.Result {
	fields := store.Fields{
		Name:    args["name"].(string),
		Email:   args["email"].(string),
		Address: args["address"].(string),
		Phone:   args["phone"].(string),
	}

	user, err := c.store.Create(ctx, fields)
	if err != nil {
		c.logger.Error("create-user failed", log.Error(err))
		return registry.Failure(msgSaveFailed)
	}

	return registry.Ok(fmt.Sprintf("User %d created successfully", user.ID))
}

// createRandomUser asks the connected client to generate user data via
// sampling, then persists the parsed result.
func (c *userCapabilities) createRandomUser(ctx context.Context, args map[string]any) registry.Result {
	text, err := c.sampler.Sample(ctx, fakeUserPrompt, samplingMaxTokens)
	if err != nil {
		c.logger.Error("sampling failed", log.Error(err))
		return registry.Failure(msgGenerateFailed)
	}

	fields, ok := parseGeneratedUser(text)
	if !ok {
		c.logger.Warn("sampled response did not parse as user data")
		return registry.Failure(msgGenerateFailed)
	}

	user, err := c.store.Create(ctx, fields)
	if err != nil {
		c.logger.Error("create-random-user failed", log.Error(err))
		return registry.Failure(msgSaveFailed)
	}

	return registry.Ok(fmt.Sprintf("User %d created successfully", user.ID))
}

// parseGeneratedUser extracts user fields from a sampled completion.
// Models sometimes wrap JSON in markdown fences despite instructions, so
// fences are stripped before parsing. All four fields must be present.
func parseGeneratedUser(text string) (store.Fields, bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return store.Fields{}, false
	}

	if parsed.Name == "" || parsed.Email == "" || parsed.Address == "" || parsed.Phone == "" {
		return store.Fields{}, false
	}

	return store.Fields{
		Name:    parsed.Name,
		Email:   parsed.Email,
		Address: parsed.Address,
		Phone:   parsed.Phone,
	}, true
}

// allUsers serves the full user list as JSON.
func (c *userCapabilities) allUsers(ctx context.Context, uri string, _ map[string]string) ([]registry.ResourceContent, error) {
	users, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	text, err := prettyJSON(users)
	if err != nil {
		return nil, err
	}

	return []registry.ResourceContent{
		{URI: uri, MIMEType: "application/json", Text: text},
	}, nil
}

// userProfile serves a single user's record. A missing user is reported in
// the payload rather than as a protocol error, so a model reading the
// resource sees a parseable answer.
func (c *userCapabilities) userProfile(ctx context.Context, uri string, vars map[string]string) ([]registry.ResourceContent, error) {
	raw := vars["userId"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "userId",
			Message:    fmt.Sprintf("user id %q is not a number", raw),
			Suggestion: "Use a numeric user id, e.g. users://1/profile",
		}
	}

	user, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			text, jerr := prettyJSON(map[string]string{
				"error": fmt.Sprintf("User with id %d not found", id),
			})
			if jerr != nil {
				return nil, jerr
			}
			return []registry.ResourceContent{
				{URI: uri, MIMEType: "application/json", Text: text},
			}, nil
		}
		return nil, err
	}

	text, err := prettyJSON(user)
	if err != nil {
		return nil, err
	}

	return []registry.ResourceContent{
		{URI: uri, MIMEType: "application/json", Text: text},
	}, nil
}
