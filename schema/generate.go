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
	"strings"
	"time"

	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generate infers a schema from a sample document. Strings containing '@' are
// taken as emails and keys containing "password" as passwords. Values of
// unrecognised types are skipped, as is _id.
func Generate(data map[string]any) Schema {
	s := Schema{}
	for key, value := range data {
		if key == IDField {
			continue
		}
		if f := inferField(key, value); f != nil {
			s[key] = f
		}
	}
	return s
}

// GenerateFile is Generate followed by WriteFile.
func GenerateFile(data map[string]any, path string) (Schema, error) {
	s := Generate(data)
	if err := s.WriteFile(path); err != nil {
		return nil, err
	}
	return s, nil
}

func inferField(key string, value any) *Field {
	switch v := value.(type) {
	case bool:
		return &Field{Type: types.FieldBool}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return &Field{Type: types.FieldInt}
	case float32, float64, primitive.Decimal128:
		return &Field{Type: types.FieldFloat}
	case types.Email:
		return &Field{Type: types.FieldEmail}
	case types.Password:
		return &Field{Type: types.FieldPassword}
	case string:
		switch {
		case strings.Contains(v, "@"):
			return &Field{Type: types.FieldEmail}
		case strings.Contains(strings.ToLower(key), "password"):
			return &Field{Type: types.FieldPassword}
		}
		return &Field{Type: types.FieldString}
	case time.Time, primitive.DateTime:
		return &Field{Type: types.FieldDate}
	case primitive.ObjectID:
		return &Field{Type: types.FieldObjectID}
	}

	if d, ok := types.AsDict(value); ok {
		return &Field{Type: types.FieldDict, Schema: Generate(d)}
	}
	if items := listItems(value); len(items) > 0 {
		f := &Field{Type: types.FieldList}
		if d, ok := types.AsDict(items[0]); ok {
			f.Schema = Generate(d)
		}
		return f
	}
	return nil
}
