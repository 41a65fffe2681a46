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

// Package config loads the Userdeck client configuration from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"strings"

	"github.com/tombee/userdeck/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration.
type Config struct {
	// Server describes how to spawn the MCP server process.
	Server ServerConfig `yaml:"server"`

	// LLM configures the completion provider used for queries and sampling.
	LLM LLMConfig `yaml:"llm"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// UsersFile is the path to the server's user record file, passed to the
	// spawned server when Server.Args is empty.
	UsersFile string `yaml:"users_file"`
}

// ServerConfig describes the MCP server process to spawn.
type ServerConfig struct {
	// Command is the server binary to execute.
	Command string `yaml:"command"`

	// Args are extra arguments for the server command. When empty, the
	// client passes --file with UsersFile.
	Args []string `yaml:"args"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	// Model is the model ID for completions and sampling.
	Model string `yaml:"model"`

	// MaxTokens limits response length for sampling requests.
	MaxTokens int `yaml:"max_tokens"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Command: "userdeckd",
		},
		LLM: LLMConfig{
			Model:     "claude-3-5-haiku-20241022",
			MaxTokens: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		UsersFile: "users.json",
	}
}

// Load reads the configuration file at path, falling back to defaults when
// the file does not exist. Environment variables override file values.
// A malformed file is a ConfigError.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file is fine; defaults plus env apply.
	case err != nil:
		return nil, &errors.ConfigError{
			Key:    path,
			Reason: "failed to read config file",
			Cause:  err,
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &errors.ConfigError{
				Key:    path,
				Reason: "failed to parse config file",
				Cause:  err,
			}
		}
	}

	applyEnv(cfg)

	if cfg.Server.Command == "" {
		return nil, &errors.ConfigError{
			Key:    "server.command",
			Reason: "server command must not be empty",
		}
	}

	return cfg, nil
}

// applyEnv overrides file values from the environment.
// Supported variables:
//   - USERDECK_SERVER_COMMAND: server binary to spawn
//   - USERDECK_USERS_FILE: path to the user record file
//   - USERDECK_MODEL: model ID for completions
func applyEnv(cfg *Config) {
	if v := os.Getenv("USERDECK_SERVER_COMMAND"); v != "" {
		cfg.Server.Command = v
	}
	if v := os.Getenv("USERDECK_USERS_FILE"); v != "" {
		cfg.UsersFile = v
	}
	if v := os.Getenv("USERDECK_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("USERDECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}

// ServerArgs returns the arguments for the spawned server process.
// Explicit args win; otherwise the users file is forwarded.
func (c *Config) ServerArgs() []string {
	if len(c.Server.Args) > 0 {
		return c.Server.Args
	}
	return []string{"--file", c.UsersFile}
}
