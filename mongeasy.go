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
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/tomoncle/mongeasy/database"
	"github.com/tomoncle/mongeasy/repository"
	"github.com/tomoncle/mongeasy/schema"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrEmptyClassName is returned by CreateDocumentClass for a blank name.
var ErrEmptyClassName = errors.New("document class name cannot be empty")

var (
	classesMu sync.RWMutex
	classes   = make(map[string]*repository.DocumentClass)
)

// CreateDocumentClass returns a document class named name over collection on
// the global connection. An empty collection defaults to name. When InitDB has
// not been called the connection is made from MONGO_DB_CONNECTION_STRING and
// MONGO_DB_NAME. The class is registered by name, replacing an earlier class
// of the same name, and added to the model registry so that migrations sync
// its validator.
func CreateDocumentClass(ctx context.Context, name, collection string, s schema.Schema) (*repository.DocumentClass, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyClassName
	}
	db, err := database.EnsureConnected(ctx)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		collection = name
	}

	cls := repository.NewDocumentClass(name, db.Collection(collection), s)
	classesMu.Lock()
	classes[name] = cls
	classesMu.Unlock()
	database.RegisterModel(cls)
	return cls, nil
}

// LookupDocumentClass returns the class registered under name.
func LookupDocumentClass(name string) (*repository.DocumentClass, bool) {
	classesMu.RLock()
	defer classesMu.RUnlock()
	cls, ok := classes[name]
	return cls, ok
}

// DocumentClasses returns the registered class names in sorted order.
func DocumentClasses() []string {
	classesMu.RLock()
	defer classesMu.RUnlock()
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveDocumentClass forgets the class registered under name.
func RemoveDocumentClass(name string) bool {
	classesMu.Lock()
	_, ok := classes[name]
	delete(classes, name)
	classesMu.Unlock()
	if ok {
		database.UnregisterModel(name)
	}
	return ok
}

// RegisterModel registers the typed model T with the model registry so that
// migrations create its collection and indexes.
func RegisterModel[T any](indexes ...mongo.IndexModel) {
	database.RegisterModel(database.NewModelAdapter(
		repository.ModelNameOf[T](),
		repository.CollectionNameOf[T](),
		indexes,
		nil,
	))
}
