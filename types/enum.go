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

package types

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// FieldType names the kind of value a schema field holds.
type FieldType int

const (
	FieldAny FieldType = iota
	FieldString
	FieldInt
	FieldFloat
	FieldBool
	FieldDate
	FieldEmail
	FieldPassword
	FieldList
	FieldDict
	FieldObjectID
)

var _ BaseEnum = FieldAny

var fieldTypeNames = map[FieldType][2]string{
	FieldAny:      {"any", "any value"},
	FieldString:   {"str", "string"},
	FieldInt:      {"int", "integer number"},
	FieldFloat:    {"float", "floating point number"},
	FieldBool:     {"bool", "boolean"},
	FieldDate:     {"date", "date and time"},
	FieldEmail:    {"email", "validated email address"},
	FieldPassword: {"password", "bcrypt hashed password"},
	FieldList:     {"list", "array of values"},
	FieldDict:     {"dict", "embedded document"},
	FieldObjectID: {"objectid", "ObjectId reference"},
}

// ParseFieldType resolves a field type from its schema name. Unknown names
// return an invalid FieldType.
func ParseFieldType(name string) FieldType {
	s := strings.ToLower(strings.TrimSpace(name))
	switch s {
	case "string":
		return FieldString
	case "integer":
		return FieldInt
	case "double", "number":
		return FieldFloat
	case "boolean":
		return FieldBool
	case "datetime", "time":
		return FieldDate
	case "array":
		return FieldList
	case "object", "document":
		return FieldDict
	}
	for t, n := range fieldTypeNames {
		if n[0] == s {
			return t
		}
	}
	return FieldType(IllegalValue)
}

func (t FieldType) IsValid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

func (t FieldType) Number() int {
	if !t.IsValid() {
		return IllegalValue
	}
	return int(t)
}

func (t FieldType) String() string { return t.Name() }

func (t FieldType) Name() string {
	if n, ok := fieldTypeNames[t]; ok {
		return n[0]
	}
	return IllegalName
}

func (t FieldType) Desc() string {
	if n, ok := fieldTypeNames[t]; ok {
		return n[1]
	}
	return IllegalDesc
}

// MarshalText writes the schema name, so YAML and JSON schema files stay readable.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.Name()), nil
}

func (t *FieldType) UnmarshalText(b []byte) error {
	*t = ParseFieldType(string(b))
	return nil
}

// Accepts reports whether v is a value of this field type. Both plain Go values
// and the types the driver decodes into are recognised.
func (t FieldType) Accepts(v any) bool {
	switch t {
	case FieldAny:
		return true
	case FieldString:
		switch v.(type) {
		case string, Email, Password:
			return true
		}
	case FieldInt:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
			return true
		}
	case FieldFloat:
		switch v.(type) {
		case float32, float64, primitive.Decimal128:
			return true
		}
	case FieldBool:
		_, ok := v.(bool)
		return ok
	case FieldDate:
		switch v.(type) {
		case time.Time, primitive.DateTime, primitive.Timestamp:
			return true
		}
	case FieldEmail:
		switch e := v.(type) {
		case Email:
			return e.Validate() == nil
		case string:
			return Email(e).Validate() == nil
		}
	case FieldPassword:
		switch p := v.(type) {
		case Password:
			return true
		case string:
			return Password(p).IsHashed()
		}
	case FieldList:
		switch v.(type) {
		case []any, bson.A, []string, []int, []float64, []map[string]any, []bson.M, []Dict:
			return true
		}
	case FieldDict:
		switch v.(type) {
		case Dict, map[string]any, bson.M, bson.D:
			return true
		}
	case FieldObjectID:
		_, ok := v.(primitive.ObjectID)
		return ok
	}
	return false
}
