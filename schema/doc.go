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

// Package schema declares document schemas and validates documents against
// them.
//
// A Schema maps field names to a Field carrying a types.FieldType, a required
// flag and an optional custom validator:
//
//	userSchema := schema.Schema{
//		"name":     {Type: types.FieldString, Required: true},
//		"email":    {Type: types.FieldEmail, Required: true},
//		"password": {Type: types.FieldPassword},
//		"address": {Type: types.FieldDict, Schema: schema.Schema{
//			"city": {Type: types.FieldString},
//		}},
//	}
//
// Schemas can be inferred from sample data with Generate, stored as YAML or
// JSON with WriteFile and LoadFile, and exported as a server side $jsonSchema
// validator with JSONSchema.
package schema
