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
	"errors"
	"fmt"
	"sort"

	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrInvalidField  = errors.New("field is invalid")
	ErrRequiredField = errors.New("required field is missing")
	ErrFieldType     = errors.New("field has invalid type")
	ErrUnknownField  = errors.New("field is not in the schema")
)

// IDField is the primary key field. It is never part of a schema.
const IDField = "_id"

// FieldError reports which field failed validation.
type FieldError struct {
	Field string
	Err   error
	// Expected is set for ErrFieldType.
	Expected types.FieldType
	Got      any
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrFieldType) {
		return fmt.Sprintf("field '%s' has invalid type, expected %s, got %T", e.Field, e.Expected, e.Got)
	}
	return fmt.Sprintf("field '%s': %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Field declares one schema entry.
type Field struct {
	Type     types.FieldType `json:"type" yaml:"type"`
	Required bool            `json:"required,omitempty" yaml:"required,omitempty"`
	// Validator, when set, must return true for the value, which is nil when the
	// field is absent.
	Validator func(v any) bool `json:"-" yaml:"-"`
	// Schema describes the embedded document of a dict field, or the elements of
	// a list field.
	Schema Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Schema maps field names to their declaration.
type Schema map[string]*Field

// Fields returns the field names in sorted order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks doc against the schema and returns the first *FieldError found.
// Fields are checked in name order: custom validator, then presence, then type.
// Afterwards every key of doc other than _id must be declared.
func (s Schema) Validate(doc map[string]any) error {
	return s.validate("", doc, true)
}

func (s Schema) validate(prefix string, doc map[string]any, top bool) error {
	for _, name := range s.Fields() {
		f := s[name]
		if f == nil {
			continue
		}
		path := prefix + name
		v := doc[name]

		if f.Validator != nil && !f.Validator(v) {
			return &FieldError{Field: path, Err: ErrInvalidField}
		}
		if v == nil {
			if f.Required {
				return &FieldError{Field: path, Err: ErrRequiredField}
			}
			continue
		}
		if !f.Type.Accepts(v) {
			return &FieldError{Field: path, Err: ErrFieldType, Expected: f.Type, Got: v}
		}
		if err := f.validateNested(path, v); err != nil {
			return err
		}
	}

	for _, k := range types.Dict(doc).Keys() {
		if top && k == IDField {
			continue
		}
		if _, ok := s[k]; !ok {
			return &FieldError{Field: prefix + k, Err: ErrUnknownField}
		}
	}
	return nil
}

func (f *Field) validateNested(path string, v any) error {
	if len(f.Schema) == 0 {
		return nil
	}
	if d, ok := types.AsDict(v); ok {
		return f.Schema.validate(path+".", d, false)
	}
	if f.Type != types.FieldList {
		return nil
	}
	for i, item := range listItems(v) {
		d, ok := types.AsDict(item)
		if !ok {
			return &FieldError{Field: fmt.Sprintf("%s.%d", path, i), Err: ErrFieldType, Expected: types.FieldDict, Got: item}
		}
		if err := f.Schema.validate(fmt.Sprintf("%s.%d.", path, i), d, false); err != nil {
			return err
		}
	}
	return nil
}

func listItems(v any) []any {
	switch a := v.(type) {
	case []any:
		return a
	case bson.A:
		return a
	case []map[string]any:
		out := make([]any, len(a))
		for i, m := range a {
			out[i] = m
		}
		return out
	case []bson.M:
		out := make([]any, len(a))
		for i, m := range a {
			out[i] = m
		}
		return out
	case []types.Dict:
		out := make([]any, len(a))
		for i, m := range a {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(a))
		for i, e := range a {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(a))
		for i, e := range a {
			out[i] = e
		}
		return out
	case []float64:
		out := make([]any, len(a))
		for i, e := range a {
			out[i] = e
		}
		return out
	}
	return nil
}
