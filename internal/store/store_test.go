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

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/userdeck/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "users.json"), nil)
}

func TestCreate_EmptyStoreAssignsIDOne(t *testing.T) {
	s := newTestStore(t)

	user, err := s.Create(context.Background(), Fields{
		Name:    "Jane",
		Email:   "jane@x.com",
		Address: "1 Rd",
		Phone:   "555",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)

	users, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Jane", users[0].Name)
	assert.Equal(t, "jane@x.com", users[0].Email)
	assert.Equal(t, "1 Rd", users[0].Address)
	assert.Equal(t, "555", users[0].Phone)
}

func TestCreate_MonotonicIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seen := make(map[int]bool)
	prevMax := 0
	for i := 0; i < 5; i++ {
		user, err := s.Create(ctx, Fields{Name: "u"})
		require.NoError(t, err)

		assert.Equal(t, prevMax+1, user.ID, "id must be max existing id + 1")
		assert.False(t, seen[user.ID], "ids must never repeat")
		seen[user.ID] = true
		prevMax = user.ID
	}
}

func TestCreate_SkipsGapsAfterManualEdit(t *testing.T) {
	// A hand-edited file with a high id must not cause reuse of lower ids.
	path := filepath.Join(t.TempDir(), "users.json")
	seed := `[{"id": 7, "name": "x", "email": "", "address": "", "phone": ""}]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s := New(path, nil)
	user, err := s.Create(context.Background(), Fields{Name: "y"})
	require.NoError(t, err)
	assert.Equal(t, 8, user.ID)
}

func TestList_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := []Fields{
		{Name: "Ada", Email: "ada@x.com", Address: "2 St", Phone: "111"},
		{Name: "Bob", Email: "bob@x.com", Address: "3 St", Phone: "222"},
		{Name: "Cal", Email: "cal@x.com", Address: "4 St", Phone: "333"},
	}
	for _, f := range want {
		_, err := s.Create(ctx, f)
		require.NoError(t, err)
	}

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, len(want))
	for i, f := range want {
		assert.Equal(t, i+1, users[i].ID, "insertion order preserved")
		assert.Equal(t, f.Name, users[i].Name)
		assert.Equal(t, f.Email, users[i].Email)
	}
}

func TestList_MissingFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.List(context.Background())
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "read", storageErr.Op)
}

func TestList_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, nil)
	_, err := s.List(context.Background())

	var storageErr *errors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "parse", storageErr.Op)
}

func TestGet_Found(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, Fields{Name: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, Fields{Name: "only"})
	require.NoError(t, err)

	_, err = s.Get(ctx, 99)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "missing id must be a typed NotFoundError")
}

func TestCreate_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "users.json")

	s := New(path, nil)
	_, err := s.Create(context.Background(), Fields{Name: "x"})
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "write", storageErr.Op)
}

func TestSave_PrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := New(path, nil)

	_, err := s.Create(context.Background(), Fields{Name: "Jane"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n  {"), "file must be 2-space indented")
}
