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

package registry

// Result is the outcome of a tool invocation. A failed Result carries a
// human-readable reason in Text and travels back to the caller as tool
// output, distinct from protocol-level errors.
type Result struct {
	Text   string
	Failed bool
}

// Ok returns a successful Result with the given text.
func Ok(text string) Result {
	return Result{Text: text}
}

// Failure returns a failed Result with the given reason.
func Failure(reason string) Result {
	return Result{Text: reason, Failed: true}
}
