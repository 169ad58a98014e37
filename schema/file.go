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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported schema file format")

// WriteFile stores the schema as YAML (.yaml, .yml) or JSON (.json).
func (s Schema) WriteFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "yaml":
		data, err = yaml.Marshal(s)
	case "json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a schema written by WriteFile or by hand. Validators cannot be
// stored and must be attached after loading.
func LoadFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := Schema{}
	switch format(path) {
	case "yaml":
		err = yaml.Unmarshal(data, &s)
	case "json":
		err = json.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	for name, f := range s {
		if err := f.check(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (f *Field) check(path string) error {
	if f == nil {
		return fmt.Errorf("schema field '%s' is empty", path)
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("schema field '%s' has unknown type", path)
	}
	for name, sub := range f.Schema {
		if err := sub.check(path + "." + name); err != nil {
			return err
		}
	}
	return nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	}
	return ""
}
