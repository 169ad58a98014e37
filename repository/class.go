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
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tomoncle/mongeasy/database"
	"github.com/tomoncle/mongeasy/schema"
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var logger database.Logger = database.NewNamedLogger("REPOSITORY")

// Method is a behaviour attached to a DocumentClass and run through
// Document.Call.
type Method func(ctx context.Context, doc *Document, args ...any) (any, error)

// IndexDirection is the sort order of an index created by CreateIndex.
type IndexDirection int

const (
	IndexAsc  IndexDirection = 1
	IndexDesc IndexDirection = -1
)

func (d IndexDirection) String() string {
	switch d {
	case IndexAsc:
		return "asc"
	case IndexDesc:
		return "desc"
	}
	return fmt.Sprintf("IndexDirection(%d)", int(d))
}

// DocumentClass binds a name, a collection and an optional schema. Documents
// created by New belong to it.
type DocumentClass struct {
	name   string
	coll   *mongo.Collection
	schema schema.Schema

	mu      sync.RWMutex
	methods map[string]Method
	bases   []*DocumentClass
}

var _ database.ValidatedModel = (*DocumentClass)(nil)

// NewDocumentClass returns a document class over coll. A nil schema disables
// validation.
func NewDocumentClass(name string, coll *mongo.Collection, s schema.Schema) *DocumentClass {
	return &DocumentClass{name: name, coll: coll, schema: s, methods: make(map[string]Method)}
}

func (c *DocumentClass) Name() string { return c.name }

func (c *DocumentClass) ModelName() string { return c.name }

func (c *DocumentClass) CollectionName() string {
	if c.coll == nil {
		return ""
	}
	return c.coll.Name()
}

func (c *DocumentClass) Collection() *mongo.Collection { return c.coll }

func (c *DocumentClass) Schema() schema.Schema { return c.schema }

// JSONSchema returns the $jsonSchema validator of the schema, nil without one.
func (c *DocumentClass) JSONSchema() bson.M {
	if c.schema == nil {
		return nil
	}
	return c.schema.JSONSchema()
}

// New creates an unsaved document from a copy of data. Embedded documents are
// stored as plain maps. An _id must be an ObjectID or its hex form.
func (c *DocumentClass) New(data map[string]any) (*Document, error) {
	d := make(types.Dict, len(data)+1)
	for k, v := range data {
		switch e := v.(type) {
		case *Document:
			if e == nil {
				d[k] = nil
				continue
			}
			d[k] = e.ToMap()
		case Document:
			d[k] = e.ToMap()
		default:
			d[k] = v
		}
	}

	id, err := parseID(d[schema.IDField])
	if err != nil {
		return nil, err
	}
	d[schema.IDField] = id
	return &Document{Dict: d, class: c}, nil
}

// parseID returns nil for a missing id.
func parseID(v any) (any, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case primitive.ObjectID:
		return id, nil
	case *primitive.ObjectID:
		if id == nil {
			return nil, nil
		}
		return *id, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
		return oid, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidID, v)
}

// AddMethod attaches m under name, replacing an earlier method of that name.
func (c *DocumentClass) AddMethod(name string, m Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = m
}

// AddBase makes the methods of base available to this class. Bases added
// later take precedence.
func (c *DocumentClass) AddBase(base *DocumentClass) {
	if base == nil || base == c {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bases = append(c.bases, base)
}

// Method looks name up on the class, then on its bases, latest added first,
// depth first.
func (c *DocumentClass) Method(name string) (Method, bool) {
	return c.lookup(name, make(map[*DocumentClass]bool))
}

func (c *DocumentClass) lookup(name string, seen map[*DocumentClass]bool) (Method, bool) {
	if seen[c] {
		return nil, false
	}
	seen[c] = true

	c.mu.RLock()
	m, ok := c.methods[name]
	bases := append([]*DocumentClass(nil), c.bases...)
	c.mu.RUnlock()
	if ok {
		return m, true
	}
	for i := len(bases) - 1; i >= 0; i-- {
		if m, ok := bases[i].lookup(name, seen); ok {
			return m, true
		}
	}
	return nil, false
}

func (c *DocumentClass) collection() (*mongo.Collection, error) {
	if c.coll == nil {
		logger.Error("The collection does not exist", "class", c.name)
		return nil, ErrCollectionMissing
	}
	return c.coll, nil
}

// toFilter accepts nil, maps, bson.D, types.Dict and *types.QueryFilter.
func toFilter(filter any) (any, error) {
	switch f := filter.(type) {
	case nil:
		return bson.M{}, nil
	case bson.M:
		return f, nil
	case bson.D:
		return f, nil
	case map[string]any:
		return bson.M(f), nil
	case types.Dict:
		return bson.M(f), nil
	case *types.QueryFilter:
		return f.Bson(), nil
	}
	return nil, fmt.Errorf("unsupported filter type %T", filter)
}

// Find returns the documents matching filter. A nil filter matches all.
func (c *DocumentClass) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (types.ResultList[*Document], error) {
	coll, err := c.collection()
	if err != nil {
		return nil, err
	}
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make(types.ResultList[*Document], 0, len(raw))
	for _, m := range raw {
		out = append(out, c.fromStored(m))
	}
	return out, nil
}

// FindIn returns the documents whose field holds one of values.
func (c *DocumentClass) FindIn(ctx context.Context, field string, values []any) (types.ResultList[*Document], error) {
	return c.Find(ctx, bson.M{field: bson.M{"$in": bson.A(values)}})
}

// FindOne returns the first document matching filter, or ErrDocumentNotFound.
func (c *DocumentClass) FindOne(ctx context.Context, filter any) (*Document, error) {
	coll, err := c.collection()
	if err != nil {
		return nil, err
	}
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := coll.FindOne(ctx, f).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return c.fromStored(m), nil
}

// GetByID loads the document with the given ObjectID or hex id.
func (c *DocumentClass) GetByID(ctx context.Context, id any) (*Document, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if oid == nil {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidID)
	}
	return c.FindOne(ctx, bson.M{schema.IDField: oid})
}

// InsertMany saves every item as a new document. Items that fail are logged
// and reported in the joined error; the saved documents are returned.
func (c *DocumentClass) InsertMany(ctx context.Context, items []map[string]any) ([]*Document, error) {
	saved := make([]*Document, 0, len(items))
	var errs []error
	for i, item := range items {
		doc, err := c.New(item)
		if err == nil {
			err = doc.Save(ctx)
		}
		if err != nil {
			logger.Error("Error inserting item", "class", c.name, "index", i, "error", err)
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		saved = append(saved, doc)
	}
	return saved, errors.Join(errs...)
}

// DeleteMany removes the documents matching filter and returns how many were
// deleted.
func (c *DocumentClass) DeleteMany(ctx context.Context, filter any) (int64, error) {
	coll, err := c.collection()
	if err != nil {
		return 0, err
	}
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DocumentCount returns the number of documents in the collection.
func (c *DocumentClass) DocumentCount(ctx context.Context) (int64, error) {
	coll, err := c.collection()
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, bson.M{})
}

// CreateIndex creates an index over keys, all in direction. An empty name
// becomes "<key1>_<key2>_<asc|desc>". It returns the index name.
func (c *DocumentClass) CreateIndex(ctx context.Context, keys []string, direction IndexDirection, unique bool, name string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%w: keys must be a non-empty list", ErrInvalidIndex)
	}
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return "", fmt.Errorf("%w: empty key", ErrInvalidIndex)
		}
	}
	if direction != IndexAsc && direction != IndexDesc {
		return "", fmt.Errorf("%w: direction must be asc or desc", ErrInvalidIndex)
	}
	coll, err := c.collection()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = strings.Join(keys, "_") + "_" + direction.String()
	}

	spec := make(bson.D, len(keys))
	for i, k := range keys {
		spec[i] = bson.E{Key: k, Value: int(direction)}
	}
	return coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    spec,
		Options: options.Index().SetName(name).SetUnique(unique),
	})
}

// fromStored wraps a document read from the collection. Embedded documents
// become types.Dict.
func (c *DocumentClass) fromStored(m bson.M) *Document {
	d := make(types.Dict, len(m))
	for k, v := range m {
		d[k] = types.ToDicts(v)
	}
	if _, ok := d[schema.IDField]; !ok {
		d[schema.IDField] = nil
	}
	return &Document{Dict: d, class: c}
}
