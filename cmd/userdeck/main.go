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

// userdeck is the interactive client for the Userdeck MCP server. It spawns
// the server, answers its sampling requests with an LLM, and drives a
// menu-based session for tools, resources, prompts, and free-form queries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/userdeck/internal/cli/prompt"
	"github.com/tombee/userdeck/internal/client"
	"github.com/tombee/userdeck/internal/config"
	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/pkg/llm/providers"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:     "userdeck",
		Short:   "Interactive client for the Userdeck MCP server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, logLevel)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "userdeck.yaml", "Path to the config file")
	root.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := log.FromEnv()
	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		logCfg.Format = log.Format(cfg.Log.Format)
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	logger := log.New(logCfg)
	slog.SetDefault(logger)

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		logger.Warn("ANTHROPIC_API_KEY is not set; queries and sampling will fail")
	} else {
		logger.Debug("using API key", log.String("key", log.SanitizeAPIKey(apiKey)))
	}
	provider := providers.NewAnthropicProvider(apiKey)

	sampling := client.NewLLMSamplingHandler(provider, cfg.LLM.Model, logger)

	logger.Info("spawning MCP server",
		log.String("command", cfg.Server.Command))

	c, err := client.Connect(ctx, client.Config{
		Command:         cfg.Server.Command,
		Args:            cfg.ServerArgs(),
		SamplingHandler: sampling,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer c.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	prompter := prompt.NewSurveyPrompter(interactive)

	loop := client.NewLoop(c, prompter, provider, cfg.LLM.Model, os.Stdout, logger)
	return loop.Run(ctx)
}
