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

package database

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotConnected is returned when no connection has been set up and none
	// could be made from the environment.
	ErrNotConnected = errors.New("InitDB must be called before creating document classes.\n" +
		"Another option is to set the MONGO_DB_CONNECTION_STRING and MONGO_DB_NAME environment variables")
	ErrNotInitialized = errors.New("database manager not initialized")
	ErrConnectFailed  = errors.New("could not connect to database")
	ErrInvalidConfig  = errors.New("invalid database config")
)

type MongoError int

const (
	UnknownErr MongoError = iota
	NoDocumentsErr
	DuplicateKeyErr
	TimeoutErr
	NetworkErr
	NamespaceNotFoundErr
	NamespaceExistsErr
	IndexNotFoundErr
	IndexConflictErr
	ValidationErr
	WriteConflictErr
	UnauthorizedErr
)

var mongoErrorNames = map[MongoError]string{
	UnknownErr:           "unknown",
	NoDocumentsErr:       "no_documents",
	DuplicateKeyErr:      "duplicate_key",
	TimeoutErr:           "timeout",
	NetworkErr:           "network",
	NamespaceNotFoundErr: "namespace_not_found",
	NamespaceExistsErr:   "namespace_exists",
	IndexNotFoundErr:     "index_not_found",
	IndexConflictErr:     "index_conflict",
	ValidationErr:        "document_validation",
	WriteConflictErr:     "write_conflict",
	UnauthorizedErr:      "unauthorized",
}

func (e MongoError) String() string {
	if n, ok := mongoErrorNames[e]; ok {
		return n
	}
	return mongoErrorNames[UnknownErr]
}

// server error codes, see src/mongo/base/error_codes.yml
var codeErrors = []struct {
	codes []int
	kind  MongoError
}{
	{[]int{26}, NamespaceNotFoundErr},
	{[]int{48}, NamespaceExistsErr},
	{[]int{27}, IndexNotFoundErr},
	{[]int{85, 86}, IndexConflictErr},
	{[]int{121}, ValidationErr},
	{[]int{112}, WriteConflictErr},
	{[]int{13, 18}, UnauthorizedErr},
}

// IsMongoError classifies err. is is false when err does not come from the
// driver or the server.
func IsMongoError(err error) (is bool, kind MongoError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, NoDocumentsErr
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, DuplicateKeyErr
	}
	if mongo.IsTimeout(err) {
		return true, TimeoutErr
	}
	if mongo.IsNetworkError(err) {
		return true, NetworkErr
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, c := range codeErrors {
			for _, code := range c.codes {
				if se.HasErrorCode(code) {
					return true, c.kind
				}
			}
		}
		return true, UnknownErr
	}
	return false, UnknownErr
}
