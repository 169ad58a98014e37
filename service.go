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

package mongeasy

import (
	"context"
	"sync"

	"github.com/tomoncle/mongeasy/database"
	"github.com/tomoncle/mongeasy/repository"
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query runs a raw filter document and decodes the results.
	Query(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*T, error)

	// Count returns the number of entities matching filter.
	Count(ctx context.Context, filter *types.QueryFilter) (int64, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Update replaces an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// RunInTx runs fn in a transaction. Service calls made with the context
	// passed to fn take part in it.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Collection returns the collection backing the entity.
	Collection() *mongo.Collection
}

type baseServiceImpl[T any] struct {
	db   *mongo.Database
	mu   sync.Mutex
	repo repository.Repository[T]
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection. The connection is
// resolved on first use and established from the environment when InitDB was
// not called.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithDB returns a Service bound to db instead of the global
// connection.
func NewServiceWithDB[T any](db *mongo.Database) Service[T] {
	return &baseServiceImpl[T]{db: db}
}

func (s *baseServiceImpl[T]) baseRepo(ctx context.Context) (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return s.repo, nil
	}
	db := s.db
	if db == nil {
		var err error
		if db, err = database.EnsureConnected(ctx); err != nil {
			return nil, err
		}
	}
	s.repo = repository.NewRepository[T](db)
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return err
	}
	return repo.Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*T, error) {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.Query(ctx, filter, opts...)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int64, error) {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, filter)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	repo, err := s.baseRepo(ctx)
	if err != nil {
		return err
	}
	return repo.RunInTx(ctx, fn)
}

// Collection returns nil when no connection is available.
func (s *baseServiceImpl[T]) Collection() *mongo.Collection {
	repo, err := s.baseRepo(context.Background())
	if err != nil {
		return nil
	}
	return repo.Collection()
}
