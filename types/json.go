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
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToJSONCompatible converts driver values into plain JSON values: dates become
// Unix seconds, ObjectIDs become hex strings. Documents and arrays are walked
// recursively and copied; v itself is not modified.
func ToJSONCompatible(v any) any {
	if m, ok := AsDict(v); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = ToJSONCompatible(val)
		}
		return out
	}
	switch t := v.(type) {
	case time.Time:
		return float64(t.UnixNano()) / float64(time.Second)
	case primitive.DateTime:
		return float64(t) / 1000
	case primitive.ObjectID:
		return t.Hex()
	case *primitive.ObjectID:
		if t == nil {
			return nil
		}
		return t.Hex()
	case Email:
		return string(t)
	case Password:
		return string(t)
	case bson.A:
		return toJSONSlice(t)
	case []any:
		return toJSONSlice(t)
	case []time.Time:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToJSONCompatible(e)
		}
		return out
	case []primitive.ObjectID:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e.Hex()
		}
		return out
	}
	return v
}

func toJSONSlice(a []any) []any {
	out := make([]any, len(a))
	for i, e := range a {
		out[i] = ToJSONCompatible(e)
	}
	return out
}

// MarshalJSONCompatible encodes v as JSON after ToJSONCompatible.
func MarshalJSONCompatible(v any) ([]byte, error) {
	return json.Marshal(ToJSONCompatible(v))
}
