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
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsMongoError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantIs bool
		want   MongoError
	}{
		{"nil", nil, false, UnknownErr},
		{"plain error", errors.New("boom"), false, UnknownErr},
		{"no documents", mongo.ErrNoDocuments, true, NoDocumentsErr},
		{"wrapped no documents", fmt.Errorf("get: %w", mongo.ErrNoDocuments), true, NoDocumentsErr},
		{
			"duplicate key",
			mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}},
			true, DuplicateKeyErr,
		},
		{"deadline", fmt.Errorf("find: %w", context.DeadlineExceeded), true, TimeoutErr},
		{"namespace not found", mongo.CommandError{Code: 26, Name: "NamespaceNotFound"}, true, NamespaceNotFoundErr},
		{"namespace exists", mongo.CommandError{Code: 48, Name: "NamespaceExists"}, true, NamespaceExistsErr},
		{"index not found", mongo.CommandError{Code: 27, Name: "IndexNotFound"}, true, IndexNotFoundErr},
		{"index options conflict", mongo.CommandError{Code: 85}, true, IndexConflictErr},
		{"index key specs conflict", mongo.CommandError{Code: 86}, true, IndexConflictErr},
		{
			"document validation",
			mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121, Message: "Document failed validation"}}},
			true, ValidationErr,
		},
		{"write conflict", mongo.CommandError{Code: 112}, true, WriteConflictErr},
		{"unauthorized", mongo.CommandError{Code: 13}, true, UnauthorizedErr},
		{"auth failed", mongo.CommandError{Code: 18}, true, UnauthorizedErr},
		{"other server error", mongo.CommandError{Code: 2, Name: "BadValue"}, true, UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := IsMongoError(tt.err)
			assert.Equal(t, tt.wantIs, is)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestMongoErrorString(t *testing.T) {
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	assert.Equal(t, "document_validation", ValidationErr.String())
	assert.Equal(t, "unknown", MongoError(99).String())
}

func TestErrNotConnectedMessage(t *testing.T) {
	assert.Contains(t, ErrNotConnected.Error(), "InitDB must be called")
	assert.Contains(t, ErrNotConnected.Error(), EnvConnectionString)
	assert.Contains(t, ErrNotConnected.Error(), EnvDatabaseName)
}
