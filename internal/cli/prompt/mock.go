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

package prompt

import (
	"context"
	"fmt"
)

// MockPrompter implements Prompter with scripted responses for testing.
// It allows tests to simulate user input without an interactive terminal.
type MockPrompter struct {
	responses    []interface{}
	currentIndex int
	interactive  bool
	callLog      []string
}

// NewMockPrompter creates a new mock prompter with pre-scripted responses.
// Responses are consumed in order across all prompt kinds.
func NewMockPrompter(interactive bool, responses ...interface{}) *MockPrompter {
	return &MockPrompter{
		responses:   responses,
		interactive: interactive,
		callLog:     make([]string, 0),
	}
}

// PromptString returns the next string response.
func (mp *MockPrompter) PromptString(ctx context.Context, name, desc string) (string, error) {
	mp.callLog = append(mp.callLog, fmt.Sprintf("PromptString(%s)", name))

	resp, err := mp.next()
	if err != nil {
		return "", err
	}
	if str, ok := resp.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("mock response is not a string")
}

// PromptSelect returns the next string response as the selection.
func (mp *MockPrompter) PromptSelect(ctx context.Context, message string, options []string) (string, error) {
	mp.callLog = append(mp.callLog, fmt.Sprintf("PromptSelect(%s)", message))

	resp, err := mp.next()
	if err != nil {
		return "", err
	}
	if str, ok := resp.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("mock response is not a string")
}

// PromptConfirm returns the next boolean response.
func (mp *MockPrompter) PromptConfirm(ctx context.Context, message string, def bool) (bool, error) {
	mp.callLog = append(mp.callLog, fmt.Sprintf("PromptConfirm(%s)", message))

	resp, err := mp.next()
	if err != nil {
		return def, err
	}
	if b, ok := resp.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("mock response is not a boolean")
}

// IsInteractive returns the configured interactive state.
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// CallLog returns the log of all prompt calls made.
func (mp *MockPrompter) CallLog() []string {
	return mp.callLog
}

// Reset clears the call log and resets the response index.
func (mp *MockPrompter) Reset() {
	mp.currentIndex = 0
	mp.callLog = make([]string, 0)
}

func (mp *MockPrompter) next() (interface{}, error) {
	if mp.currentIndex >= len(mp.responses) {
		return nil, fmt.Errorf("no mock response available")
	}
	resp := mp.responses[mp.currentIndex]
	mp.currentIndex++
	return resp, nil
}
