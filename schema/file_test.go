/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/mongeasy/types"
)

func TestSchemaFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"user.yaml", "user.yml", "user.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, userSchema().WriteFile(path), name)

		loaded, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, userSchema().Fields(), loaded.Fields(), name)
		assert.Equal(t, types.FieldEmail, loaded["email"].Type, name)
		assert.True(t, loaded["name"].Required, name)
		assert.Equal(t, types.FieldString, loaded["address"].Schema["city"].Type, name)
		assert.Nil(t, loaded["age"].Validator, name)
	}
}

func TestLoadFileHandwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.yaml")
	content := `
title:
  type: str
  required: true
author_email:
  type: email
published:
  type: datetime
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, types.FieldString, s["title"].Type)
	assert.Equal(t, types.FieldDate, s["published"].Type)
	assert.NoError(t, s.Validate(map[string]any{"title": "hi", "author_email": "a@b.io"}))
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "schema.txt")
	require.NoError(t, os.WriteFile(txt, []byte("{}"), 0o600))
	_, err = LoadFile(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, Schema{}.WriteFile(txt), ErrUnsupportedFormat)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"x": {"type": "uuid"}}`), 0o600))
	_, err = LoadFile(bad)
	assert.EqualError(t, err, "schema field 'x' has unknown type")
}

func TestGenerateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	s, err := GenerateFile(map[string]any{"name": "Ada", "email": "ada@example.com"}, path)
	require.NoError(t, err)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s["email"].Type, loaded["email"].Type)
}
