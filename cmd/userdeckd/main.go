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

// userdeckd is the Userdeck MCP server. It speaks MCP over stdio, so it is
// normally spawned by a client rather than run by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/internal/server"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		usersFile   = flag.String("file", "", "Path to the JSON user record file")
		logLevel    = flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("userdeckd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	logCfg := log.FromEnv()
	if *logLevel != "" {
		logCfg.Level = *logLevel
	}
	logger := log.New(logCfg)
	slog.SetDefault(logger)

	file := *usersFile
	if file == "" {
		file = os.Getenv("USERDECK_USERS_FILE")
	}
	if file == "" {
		file = "users.json"
	}

	srv, err := server.New(server.Config{
		UsersFile: file,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
}
