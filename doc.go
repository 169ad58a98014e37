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

// Package mongeasy is a small convenience layer over the MongoDB Go driver.
//
// Dynamic documents are declared with CreateDocumentClass and handled as
// attribute-accessible maps:
//
//	users, err := mongeasy.CreateDocumentClass(ctx, "User", "users", schema.Schema{
//		"name":     {Type: types.FieldString, Required: true},
//		"email":    {Type: types.FieldEmail},
//		"password": {Type: types.FieldPassword},
//	})
//	doc, _ := users.New(map[string]any{"name": "ada", "address": map[string]any{"city": "Lund"}})
//	err = doc.Save(ctx)
//	city, _ := doc.GetString("address.city")
//	found, _ := users.Find(ctx, map[string]any{"name": "ada"})
//	first := found.FirstOrNone()
//
// Typed models go through Service[T], backed by repository.Repository[T].
// The connection is set up with database.InitDB, or taken from the
// MONGO_DB_CONNECTION_STRING and MONGO_DB_NAME environment variables on first
// use.
package mongeasy
