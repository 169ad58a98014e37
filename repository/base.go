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
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/tomoncle/mongeasy/schema"
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionNamer lets a model choose its collection name.
type collectionNamer interface {
	CollectionName() string
}

type baseRepositoryImpl[T any] struct {
	coll *mongo.Collection
	name string
}

// NewRepository returns a generic repository over db. The collection name is
// taken from a CollectionName method on T or *T, else the snake_case type name.
func NewRepository[T any](db *mongo.Database) Repository[T] {
	return &baseRepositoryImpl[T]{coll: db.Collection(CollectionNameOf[T]()), name: ModelNameOf[T]()}
}

// ModelNameOf returns the type name of T.
func ModelNameOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().Name()
}

// CollectionNameOf returns the collection a repository of T uses.
func CollectionNameOf[T any]() string {
	var zero T
	if n, ok := any(zero).(collectionNamer); ok {
		return n.CollectionName()
	}
	if n, ok := any(&zero).(collectionNamer); ok {
		return n.CollectionName()
	}
	return snakeCase(ModelNameOf[T]())
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// "UserID" -> "user_id", "HTTPLog" -> "http_log"
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (r *baseRepositoryImpl[T]) Collection() *mongo.Collection { return r.coll }

func (r *baseRepositoryImpl[T]) ModelName() string { return r.name }

func (r *baseRepositoryImpl[T]) CollectionName() string { return r.coll.Name() }

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	var entity T
	if err := r.coll.FindOne(ctx, bson.M{schema.IDField: normalizeID(id)}).Decode(&entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.Query(ctx, bson.M{})
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return r.Query(ctx, filter.Bson())
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := cur.All(ctx, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, filter.Bson())
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	filter := pageRequest.GetFilter().Bson()
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return pagination, nil
	}
	opts := options.Find().
		SetSkip(int64(pageRequest.GetOffset())).
		SetLimit(int64(pageRequest.GetPageSize()))
	if sort := pageRequest.GetSort(); len(sort) > 0 {
		opts.SetSort(sort)
	}
	entities, err := r.Query(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

// Create inserts the entities. Zero ObjectID _id fields are filled with new
// ids before the insert.
func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	docs := make([]any, len(entity))
	for i, e := range entity {
		assignObjectID(e)
		docs[i] = e
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

// Upsert writes each entity with one upsert: fields are always overwritten,
// the rest only set when the document is inserted. duplicateKeys select the
// document to update and default to _id.
func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entity) == 0 {
		return nil
	}
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{schema.IDField}
	}

	models := make([]mongo.WriteModel, 0, len(entity))
	for _, e := range entity {
		assignObjectID(e)
		m, err := upsertModel(e, fields, duplicateKeys)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	_, err := r.coll.BulkWrite(ctx, models)
	return err
}

func upsertModel(entity any, fields, duplicateKeys []string) (mongo.WriteModel, error) {
	raw, err := bson.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	filter := bson.M{}
	for _, k := range duplicateKeys {
		v, ok := doc[k]
		if !ok {
			return nil, fmt.Errorf("upsert key %q missing from entity", k)
		}
		filter[k] = v
	}
	set := bson.M{}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			set[f] = v
		}
	}
	onInsert := bson.M{}
	for k, v := range doc {
		if _, isKey := filter[k]; isKey {
			continue
		}
		if _, isSet := set[k]; isSet {
			continue
		}
		onInsert[k] = v
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(onInsert) > 0 {
		update["$setOnInsert"] = onInsert
	}
	if len(update) == 0 {
		update["$set"] = filter
	}
	return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true), nil
}

// Update replaces the stored document with the same _id.
func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	id, err := entityID(entity)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{schema.IDField: id}, entity)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %v", ErrDocumentNotFound, id)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{schema.IDField: normalizeID(id)})
	return err
}

func (r *baseRepositoryImpl[T]) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.coll.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// normalizeID turns 24 character hex strings into ObjectIDs; other ids are
// used as given.
func normalizeID(id any) any {
	if s, ok := id.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return id
}

func entityID(entity any) (any, error) {
	raw, err := bson.Marshal(entity)
	if err != nil {
		return nil, err
	}
	v, err := bson.Raw(raw).LookupErr(schema.IDField)
	if err != nil {
		return nil, ErrMissingID
	}
	var id any
	if err := v.Unmarshal(&id); err != nil {
		return nil, err
	}
	if oid, ok := id.(primitive.ObjectID); ok && oid.IsZero() {
		return nil, ErrMissingID
	}
	return id, nil
}

// assignObjectID sets a new ObjectID on the field tagged bson:"_id" when it
// is a zero ObjectID or a nil *ObjectID.
func assignObjectID(entity any) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	f, ok := idField(v)
	if !ok || !f.CanSet() {
		return
	}
	switch id := f.Addr().Interface().(type) {
	case *primitive.ObjectID:
		if id.IsZero() {
			*id = primitive.NewObjectID()
		}
	case **primitive.ObjectID:
		if *id == nil {
			oid := primitive.NewObjectID()
			*id = &oid
		}
	}
}

func idField(v reflect.Value) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get("bson"), ",")
		if tag == schema.IDField {
			return v.Field(i), true
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && strings.Contains(sf.Tag.Get("bson"), "inline") {
			if f, ok := idField(v.Field(i)); ok {
				return f, true
			}
		}
	}
	return reflect.Value{}, false
}
