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

// Package prompt provides interactive input collection for the Userdeck
// client. Implementations include SurveyPrompter (production) and
// MockPrompter (testing), so the menu loop is testable without a terminal.
package prompt

import "context"

// Prompter defines the interface for interactive input collection.
type Prompter interface {
	// PromptString collects a free-form string input from the user.
	PromptString(ctx context.Context, name, desc string) (string, error)

	// PromptSelect presents a list of options and collects the user's
	// selection. Returns the selected option verbatim.
	PromptSelect(ctx context.Context, message string, options []string) (string, error)

	// PromptConfirm asks a yes/no question.
	PromptConfirm(ctx context.Context, message string, def bool) (bool, error)

	// IsInteractive returns true if prompts can be displayed.
	IsInteractive() bool
}
