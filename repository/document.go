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
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/tomoncle/mongeasy/schema"
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Document is a single document of a DocumentClass. Fields are read and
// written through the embedded types.Dict; _id is nil until the document is
// saved.
type Document struct {
	types.Dict
	class *DocumentClass
}

// ID returns the document id, the zero ObjectID when unsaved.
func (d *Document) ID() primitive.ObjectID {
	oid, _ := d.Dict[schema.IDField].(primitive.ObjectID)
	return oid
}

// IsNew reports whether the document has no _id yet.
func (d *Document) IsNew() bool {
	return d.Dict[schema.IDField] == nil
}

func (d *Document) Class() *DocumentClass { return d.class }

// ToMap returns a deep copy of the document fields.
func (d *Document) ToMap() map[string]any {
	return d.Dict.DeepCopy()
}

// ToJSON encodes the document with dates as Unix seconds and ObjectIDs as hex.
func (d *Document) ToJSON() (string, error) {
	b, err := types.MarshalJSONCompatible(d.Dict)
	return string(b), err
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return types.MarshalJSONCompatible(d.Dict)
}

func (d *Document) MarshalBSON() ([]byte, error) {
	return bson.Marshal(d.Dict)
}

// Validate checks the fields against the class schema, if any.
func (d *Document) Validate() error {
	if d.class == nil || d.class.schema == nil {
		return nil
	}
	return d.class.schema.Validate(d.Dict)
}

// Call runs the method name registered on the class or one of its bases.
func (d *Document) Call(ctx context.Context, name string, args ...any) (any, error) {
	m, ok := d.class.Method(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, d.class.name, name)
	}
	return m(ctx, d, args...)
}

func (d *Document) idFilter() bson.M {
	return bson.M{schema.IDField: d.Dict[schema.IDField]}
}

// Save inserts a new document or writes the changed fields of a stored one.
// A document whose _id is not in the collection is inserted with that id.
func (d *Document) Save(ctx context.Context) error {
	coll, err := d.class.collection()
	if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	if d.IsNew() {
		body := d.Dict.Copy()
		delete(body, schema.IDField)
		res, err := coll.InsertOne(ctx, body)
		if err != nil {
			return err
		}
		d.Dict[schema.IDField] = res.InsertedID
		return nil
	}

	changed, found, err := d.changes(ctx)
	if err != nil {
		return err
	}
	if !found {
		_, err := coll.InsertOne(ctx, d.Dict)
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	res, err := coll.UpdateOne(ctx, d.idFilter(), bson.M{"$set": changed})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		logger.Error("Document does not exist", "class", d.class.name, "_id", d.Dict[schema.IDField])
		return fmt.Errorf("%w: %v", ErrDocumentNotFound, d.Dict[schema.IDField])
	}
	return nil
}

// HasChanged returns the fields whose value differs from the stored
// document. Fields missing from the stored document count as changed, so an
// unsaved document reports all its fields.
func (d *Document) HasChanged(ctx context.Context) (map[string]any, error) {
	changed, _, err := d.changes(ctx)
	return changed, err
}

// IsSaved reports whether the stored document holds every field of d with
// the same value.
func (d *Document) IsSaved(ctx context.Context) (bool, error) {
	if d.IsNew() {
		return false, nil
	}
	changed, found, err := d.changes(ctx)
	if err != nil {
		return false, err
	}
	return found && len(changed) == 0, nil
}

func (d *Document) changes(ctx context.Context) (changed map[string]any, found bool, err error) {
	changed = make(map[string]any)
	var stored bson.M
	if !d.IsNew() {
		coll, err := d.class.collection()
		if err != nil {
			return nil, false, err
		}
		err = coll.FindOne(ctx, d.idFilter()).Decode(&stored)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, mongo.ErrNoDocuments):
			logger.Error("Error querying the database", "class", d.class.name, "error", err)
			return nil, false, err
		}
	}

	for k, v := range d.Dict {
		if k == schema.IDField {
			continue
		}
		old, ok := stored[k]
		if !ok {
			changed[k] = v
			continue
		}
		same, err := sameValue(old, v)
		if err != nil {
			return nil, false, fmt.Errorf("compare field '%s': %w", k, err)
		}
		if !same {
			changed[k] = v
		}
	}
	return changed, found, nil
}

// sameValue compares a and b after encoding both to BSON, with document keys
// sorted so that field order does not matter.
func sameValue(a, b any) (bool, error) {
	ea, err := bson.Marshal(bson.D{{Key: "v", Value: canonical(a)}})
	if err != nil {
		return false, err
	}
	eb, err := bson.Marshal(bson.D{{Key: "v", Value: canonical(b)}})
	if err != nil {
		return false, err
	}
	return bytes.Equal(ea, eb), nil
}

func canonical(v any) any {
	if m, ok := types.AsDict(v); ok {
		keys := m.Keys()
		out := make(bson.D, len(keys))
		for i, k := range keys {
			out[i] = bson.E{Key: k, Value: canonical(m[k])}
		}
		return out
	}
	switch t := v.(type) {
	case nil, []byte, primitive.Binary:
		return v
	case *Document:
		return canonical(t.Dict)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make(bson.A, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	}
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		out := make(bson.D, len(keys))
		for i, k := range keys {
			out[i] = bson.E{Key: k, Value: canonical(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())}
		}
		return out
	}
	return v
}

// Reload replaces the local fields with the stored ones. Embedded documents
// become types.Dict.
func (d *Document) Reload(ctx context.Context) error {
	if d.IsNew() {
		return fmt.Errorf("%w: cannot reload", ErrUnsavedDocument)
	}
	coll, err := d.class.collection()
	if err != nil {
		return err
	}
	var stored bson.M
	if err := coll.FindOne(ctx, d.idFilter()).Decode(&stored); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %v", ErrDocumentNotFound, d.Dict[schema.IDField])
		}
		return err
	}
	for k, v := range stored {
		d.Dict[k] = types.ToDicts(v)
	}
	return nil
}

// DeleteField removes field, which may be a dotted path, from the stored
// document and from d.
func (d *Document) DeleteField(ctx context.Context, field string) error {
	if !d.IsNew() {
		coll, err := d.class.collection()
		if err != nil {
			return err
		}
		if _, err := coll.UpdateOne(ctx, d.idFilter(), bson.M{"$unset": bson.M{field: ""}}); err != nil {
			logger.Error("Error deleting field", "field", field, "_id", d.Dict[schema.IDField], "error", err)
			return err
		}
		logger.Info("Field deleted from document", "field", field, "_id", d.Dict[schema.IDField])
	}
	d.Dict.DeletePath(field)
	return nil
}

// Delete removes the document from the collection.
func (d *Document) Delete(ctx context.Context) error {
	coll, err := d.class.collection()
	if err != nil {
		return err
	}
	if d.IsNew() {
		return fmt.Errorf("%w: cannot delete", ErrUnsavedDocument)
	}
	_, err = coll.DeleteOne(ctx, d.idFilter())
	return err
}
