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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/mongeasy/schema"
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestDocumentClassNew(t *testing.T) {
	users := NewDocumentClass("User", nil, nil)
	oid := primitive.NewObjectID()

	tests := []struct {
		name    string
		data    map[string]any
		wantID  any
		wantErr error
	}{
		{"no id", map[string]any{"name": "ada"}, nil, nil},
		{"nil id", map[string]any{"_id": nil}, nil, nil},
		{"object id", map[string]any{"_id": oid}, oid, nil},
		{"hex id", map[string]any{"_id": oid.Hex()}, oid, nil},
		{"pointer id", map[string]any{"_id": &oid}, oid, nil},
		{"bad hex", map[string]any{"_id": "not-an-id"}, nil, ErrInvalidID},
		{"wrong type", map[string]any{"_id": 42}, nil, ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := users.New(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, doc.Dict["_id"])
			assert.Same(t, users, doc.Class())
		})
	}
}

func TestDocumentClassNewCopiesData(t *testing.T) {
	users := NewDocumentClass("User", nil, nil)
	addresses := NewDocumentClass("Address", nil, nil)

	addr, err := addresses.New(map[string]any{"city": "Lund"})
	require.NoError(t, err)

	data := map[string]any{"name": "ada", "address": addr}
	doc, err := users.New(data)
	require.NoError(t, err)

	data["name"] = "changed"
	assert.Equal(t, "ada", doc.Dict["name"])

	nested, ok := doc.Dict["address"].(map[string]any)
	require.True(t, ok, "embedded documents are stored as maps")
	assert.Equal(t, "Lund", nested["city"])

	city, ok := doc.GetString("address.city")
	assert.True(t, ok)
	assert.Equal(t, "Lund", city)
}

func TestMethodResolution(t *testing.T) {
	named := func(name string) Method {
		return func(context.Context, *Document, ...any) (any, error) { return name, nil }
	}

	root := NewDocumentClass("Root", nil, nil)
	root.AddMethod("describe", named("root"))
	root.AddMethod("deep", named("root"))

	first := NewDocumentClass("First", nil, nil)
	first.AddMethod("describe", named("first"))
	first.AddBase(root)

	second := NewDocumentClass("Second", nil, nil)
	second.AddMethod("describe", named("second"))

	user := NewDocumentClass("User", nil, nil)
	user.AddMethod("greet", func(_ context.Context, d *Document, args ...any) (any, error) {
		name, _ := d.GetString("name")
		return "hello " + name + args[0].(string), nil
	})
	user.AddBase(first)
	user.AddBase(second)
	root.AddBase(user) // cycles are tolerated

	doc, err := user.New(map[string]any{"name": "ada"})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := doc.Call(ctx, "greet", "!")
	require.NoError(t, err)
	assert.Equal(t, "hello ada!", got)

	got, err = doc.Call(ctx, "describe")
	require.NoError(t, err)
	assert.Equal(t, "second", got, "the latest base wins")

	got, err = doc.Call(ctx, "deep")
	require.NoError(t, err)
	assert.Equal(t, "root", got, "bases are searched depth first")

	_, err = doc.Call(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestToFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter any
		want   any
	}{
		{"nil", nil, bson.M{}},
		{"map", map[string]any{"a": 1}, bson.M{"a": 1}},
		{"bson.M", bson.M{"a": 1}, bson.M{"a": 1}},
		{"bson.D", bson.D{{Key: "a", Value: 1}}, bson.D{{Key: "a", Value: 1}}},
		{"dict", types.Dict{"a": 1}, bson.M{"a": 1}},
		{"query filter", types.NewQueryFilter().Gt("age", 3), bson.M{"age": bson.M{"$gt": 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := toFilter("name = 'ada'")
	assert.Error(t, err)
}

func TestDocumentClassJSONSchema(t *testing.T) {
	assert.Nil(t, NewDocumentClass("Free", nil, nil).JSONSchema())

	s := schema.Schema{"name": {Type: types.FieldString, Required: true}}
	js := NewDocumentClass("User", nil, s).JSONSchema()
	require.Contains(t, js, "$jsonSchema")
}

func TestDocumentClassWithoutCollection(t *testing.T) {
	c := NewDocumentClass("Orphan", nil, nil)
	ctx := context.Background()

	_, err := c.Find(ctx, nil)
	assert.ErrorIs(t, err, ErrCollectionMissing)
	_, err = c.DocumentCount(ctx)
	assert.ErrorIs(t, err, ErrCollectionMissing)

	doc, err := c.New(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.ErrorIs(t, doc.Save(ctx), ErrCollectionMissing)
	assert.Empty(t, c.CollectionName())
}

func TestCreateIndexValidation(t *testing.T) {
	c := NewDocumentClass("User", nil, nil)
	ctx := context.Background()

	_, err := c.CreateIndex(ctx, nil, IndexAsc, false, "")
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = c.CreateIndex(ctx, []string{"name", " "}, IndexAsc, false, "")
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = c.CreateIndex(ctx, []string{"name"}, IndexDirection(2), false, "")
	assert.ErrorIs(t, err, ErrInvalidIndex)

	assert.Equal(t, "asc", IndexAsc.String())
	assert.Equal(t, "desc", IndexDesc.String())
}

func TestDocumentClassQueries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find wraps results", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "ada"}, {Key: "address", Value: bson.D{{Key: "city", Value: "Lund"}}}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "bob"}},
		))

		found, err := users.Find(ctx, map[string]any{"active": true})
		require.NoError(mt, err)
		require.Equal(mt, 2, found.Len())

		first := found.FirstOrNone()
		assert.Equal(mt, oid, first.ID())
		assert.False(mt, first.IsNew())
		assert.IsType(mt, types.Dict{}, first.Dict["address"])
		city, _ := first.GetString("address.city")
		assert.Equal(mt, "Lund", city)
		name, _ := found.LastOrNone().GetString("name")
		assert.Equal(mt, "bob", name)

		filter := mt.GetStartedEvent().Command.Lookup("filter").Document()
		assert.True(mt, filter.Lookup("active").Boolean())
	})

	mt.Run("find of nothing", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		found, err := users.Find(ctx, nil)
		require.NoError(mt, err)
		assert.Nil(mt, found.FirstOrNone())
		assert.Nil(mt, found.LastOrNone())
	})

	mt.Run("find in", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		_, err := users.FindIn(ctx, "name", []any{"ada", "bob"})
		require.NoError(mt, err)
		in, err := mt.GetStartedEvent().Command.Lookup("filter", "name", "$in").Array().Values()
		require.NoError(mt, err)
		assert.Len(mt, in, 2)
	})

	mt.Run("find one missing", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))
		_, err := users.FindOne(ctx, bson.M{"name": "nobody"})
		assert.ErrorIs(mt, err, ErrDocumentNotFound)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		_, err := users.GetByID(ctx, "xyz")
		assert.ErrorIs(mt, err, ErrInvalidID)

		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "ada"}},
		))
		doc, err := users.GetByID(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid, doc.ID())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))
		_, err = users.GetByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrDocumentNotFound)
	})

	mt.Run("insert many collects failures", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		saved, err := users.InsertMany(ctx, []map[string]any{
			{"name": "a"},
			{"name": "b", "_id": "bad"},
			{"name": "c"},
		})
		assert.ErrorIs(mt, err, ErrInvalidID)
		assert.Contains(mt, err.Error(), "item 1")
		require.Len(mt, saved, 2)
		assert.False(mt, saved[0].IsNew())
		assert.False(mt, saved[1].IsNew())
	})

	mt.Run("delete many and count", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
			mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(5)}}),
		)

		n, err := users.DeleteMany(ctx, bson.M{"active": false})
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)

		count, err := users.DocumentCount(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, int64(5), count)
	})

	mt.Run("create index", func(mt *mtest.T) {
		users := NewDocumentClass("User", mt.DB.Collection("users"), nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		name, err := users.CreateIndex(ctx, []string{"name", "email"}, IndexDesc, true, "")
		require.NoError(mt, err)
		assert.Equal(mt, "name_email_desc", name)

		idx := mt.GetStartedEvent().Command.Lookup("indexes").Array().Index(0).Value().Document()
		assert.Equal(mt, "name_email_desc", idx.Lookup("name").StringValue())
		assert.True(mt, idx.Lookup("unique").Boolean())
		assert.Equal(mt, int32(-1), idx.Lookup("key", "email").Int32())
	})
}
