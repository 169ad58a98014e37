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

// Package database manages the MongoDB connection behind mongeasy: retrying
// connect, health checks with reconnect, command and pool monitoring, the
// model registry, validator and index synchronization, versioned migrations,
// and seed data loading. A process-wide connection is set with InitDB or one
// of its variants; EnsureConnected falls back to MONGO_DB_CONNECTION_STRING
// and MONGO_DB_NAME.
package database
