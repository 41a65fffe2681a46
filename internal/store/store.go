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

// Package store persists user records in a single JSON file.
//
// Every mutation is a full read-modify-write of the backing file. There is
// no lock and no partial-write protection: two unsynchronized writers can
// lose an update. That is an accepted limitation of the single-file design,
// serialized in practice by the single server process.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tombee/userdeck/internal/log"
	"github.com/tombee/userdeck/pkg/errors"
)

// User is a single user record as stored in the backing file.
type User struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Fields holds the caller-supplied fields for a new user record.
// The id is assigned by the store.
type Fields struct {
	Name    string
	Email   string
	Address string
	Phone   string
}

// Store reads and writes the user file. It keeps no in-memory cache:
// every operation goes to disk.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a store backed by the JSON file at path.
// The file is not touched until the first operation.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: log.WithComponent(logger, "store"),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// List returns every user record in file order.
// Returns a StorageError when the file is missing or malformed.
func (s *Store) List(ctx context.Context) ([]User, error) {
	return s.load()
}

// Get returns the user with the given id, or a NotFoundError.
// The scan is linear; the store is small by design.
func (s *Store) Get(ctx context.Context, id int) (*User, error) {
	users, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}

	return nil, &errors.NotFoundError{Resource: "user", ID: fmt.Sprintf("%d", id)}
}

// Create appends a new record and rewrites the backing file.
// The new id is one plus the maximum existing id, or 1 for an empty store.
// A missing file is treated as an empty store so the first create succeeds
// on a fresh install.
func (s *Store) Create(ctx context.Context, f Fields) (*User, error) {
	users, err := s.load()
	if err != nil {
		var storageErr *errors.StorageError
		if !errors.As(err, &storageErr) || !os.IsNotExist(storageErr.Cause) {
			return nil, err
		}
		users = nil
	}

	maxID := 0
	for _, u := range users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}

	user := User{
		ID:      maxID + 1,
		Name:    f.Name,
		Email:   f.Email,
		Address: f.Address,
		Phone:   f.Phone,
	}
	users = append(users, user)

	if err := s.save(users); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		slog.Int(log.UserIDKey, user.ID),
		slog.Int("total", len(users)))

	return &user, nil
}

// load reads and parses the whole backing file.
func (s *Store) load() ([]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &errors.StorageError{Op: "read", Path: s.path, Cause: err}
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, &errors.StorageError{Op: "parse", Path: s.path, Cause: err}
	}

	return users, nil
}

// save rewrites the whole backing file, pretty-printed with 2-space indent.
func (s *Store) save(users []User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return &errors.StorageError{Op: "encode", Path: s.path, Cause: err}
	}

	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return &errors.StorageError{Op: "write", Path: s.path, Cause: err}
	}

	return nil
}
