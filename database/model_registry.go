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
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var defaultRegistry = newModelRegistry()

// Model is anything bound to a collection that migrations should know about:
// typed repository models and dynamic document classes alike.
type Model interface {
	ModelName() string
	CollectionName() string
}

// IndexedModel declares the indexes migrations create on its collection.
type IndexedModel interface {
	Model
	Indexes() []mongo.IndexModel
}

// ValidatedModel supplies a collection validator, usually a $jsonSchema
// document. A nil validator means none.
type ValidatedModel interface {
	Model
	JSONSchema() bson.M
}

// ModelRegistry stores models by name and exposes them in name order.
type ModelRegistry interface {
	Register(model Model)
	Unregister(name string) bool
	Lookup(name string) (Model, bool)
	Models() []Model
}

type modelRegistry struct {
	models map[string]Model
	mutex  sync.RWMutex
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{
		models: make(map[string]Model),
	}
}

// Register adds model, replacing any model registered under the same name.
func (r *modelRegistry) Register(model Model) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models[model.ModelName()] = model
}

func (r *modelRegistry) Unregister(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, ok := r.models[name]
	delete(r.models, name)
	return ok
}

func (r *modelRegistry) Lookup(name string) (Model, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

func (r *modelRegistry) Models() []Model {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ModelName() < result[j].ModelName()
	})
	return result
}

// ModelAdapter describes a model by value, for collections that have no Go
// type of their own.
type ModelAdapter struct {
	name       string
	collection string
	indexes    []mongo.IndexModel
	validator  bson.M
}

var (
	_ IndexedModel   = (*ModelAdapter)(nil)
	_ ValidatedModel = (*ModelAdapter)(nil)
)

// NewModelAdapter returns a model for collection. indexes and validator may be nil.
func NewModelAdapter(name, collection string, indexes []mongo.IndexModel, validator bson.M) *ModelAdapter {
	return &ModelAdapter{name: name, collection: collection, indexes: indexes, validator: validator}
}

func (a *ModelAdapter) ModelName() string { return a.name }

func (a *ModelAdapter) CollectionName() string { return a.collection }

func (a *ModelAdapter) Indexes() []mongo.IndexModel { return a.indexes }

func (a *ModelAdapter) JSONSchema() bson.M { return a.validator }

// RegisterModel adds a model to the default registry.
func RegisterModel(model Model) {
	defaultRegistry.Register(model)
}

// UnregisterModel removes a model from the default registry.
func UnregisterModel(name string) bool {
	return defaultRegistry.Unregister(name)
}

// LookupModel finds a model in the default registry by name.
func LookupModel(name string) (Model, bool) {
	return defaultRegistry.Lookup(name)
}

// GetRegisteredModels returns all models of the default registry sorted by name.
func GetRegisteredModels() []Model {
	return defaultRegistry.Models()
}
