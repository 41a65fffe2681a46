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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/userdeck/pkg/errors"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "userdeckd", cfg.Server.Command)
	assert.Equal(t, "users.json", cfg.UsersFile)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdeck.yaml")
	data := `
server:
  command: /usr/local/bin/userdeckd
  args: ["--file", "/srv/users.json", "--log-level", "debug"]
llm:
  model: claude-sonnet-4-20250514
users_file: /srv/users.json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/userdeckd", cfg.Server.Command)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens, "unset fields keep defaults")
	assert.Equal(t, []string{"--file", "/srv/users.json", "--log-level", "debug"}, cfg.ServerArgs())
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	var cerr *errors.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("USERDECK_SERVER_COMMAND", "/opt/userdeckd")
	t.Setenv("USERDECK_USERS_FILE", "/tmp/u.json")
	t.Setenv("USERDECK_MODEL", "claude-3-7-sonnet-20250219")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/opt/userdeckd", cfg.Server.Command)
	assert.Equal(t, "/tmp/u.json", cfg.UsersFile)
	assert.Equal(t, "claude-3-7-sonnet-20250219", cfg.LLM.Model)
}

func TestServerArgs_DefaultForwardsUsersFile(t *testing.T) {
	cfg := Default()
	cfg.UsersFile = "/data/users.json"

	assert.Equal(t, []string{"--file", "/data/users.json"}, cfg.ServerArgs())
}
