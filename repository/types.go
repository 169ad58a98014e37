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

package repository

import (
	"context"

	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query accepts any filter document the driver accepts.
	Query(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*T, error)

	Count(ctx context.Context, filter *types.QueryFilter) (int64, error)

	Create(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// TransactionRepository runs repository calls inside a transaction. The
// context passed to fn carries the session; calls made with it take part in
// the transaction.
type TransactionRepository[T any] interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, pagination, and transactional operations and
// exposes the underlying collection for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	Collection() *mongo.Collection
	ModelName() string
	CollectionName() string
}
