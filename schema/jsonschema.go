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
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
)

// JSONSchema renders the schema as a $jsonSchema validator document, suitable
// for the validator option of createCollection and collMod. Custom validators
// have no server side equivalent and are left out.
func (s Schema) JSONSchema() bson.M {
	doc := s.object()
	doc["properties"].(bson.M)[IDField] = bson.M{"bsonType": "objectId"}
	return bson.M{"$jsonSchema": doc}
}

func (s Schema) object() bson.M {
	props := bson.M{}
	required := bson.A{}
	for _, name := range s.Fields() {
		f := s[name]
		if f == nil {
			continue
		}
		p := f.property()
		if f.Required {
			required = append(required, name)
		} else {
			nullable(p)
		}
		props[name] = p
	}
	obj := bson.M{
		"bsonType":             "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	return obj
}

// nullable lets an optional property hold null, which Validate accepts.
func nullable(p bson.M) {
	switch t := p["bsonType"].(type) {
	case string:
		p["bsonType"] = bson.A{t, "null"}
	case bson.A:
		p["bsonType"] = append(append(bson.A{}, t...), "null")
	}
}

func (f *Field) property() bson.M {
	switch f.Type {
	case types.FieldString, types.FieldPassword:
		return bson.M{"bsonType": "string"}
	case types.FieldEmail:
		return bson.M{"bsonType": "string", "pattern": types.EmailPattern}
	case types.FieldInt:
		return bson.M{"bsonType": bson.A{"int", "long"}}
	case types.FieldFloat:
		return bson.M{"bsonType": bson.A{"double", "decimal"}}
	case types.FieldBool:
		return bson.M{"bsonType": "bool"}
	case types.FieldDate:
		return bson.M{"bsonType": bson.A{"date", "timestamp"}}
	case types.FieldObjectID:
		return bson.M{"bsonType": "objectId"}
	case types.FieldDict:
		if len(f.Schema) > 0 {
			return f.Schema.object()
		}
		return bson.M{"bsonType": "object"}
	case types.FieldList:
		p := bson.M{"bsonType": "array"}
		if len(f.Schema) > 0 {
			p["items"] = f.Schema.object()
		}
		return p
	}
	return bson.M{}
}
