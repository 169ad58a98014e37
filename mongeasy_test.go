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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/mongeasy/database"
	"github.com/tomoncle/mongeasy/schema"
	"github.com/tomoncle/mongeasy/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Product struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Price float64            `bson:"price"`
}

func useMockConnection(mt *mtest.T) {
	database.InitDBWithClient(mt.Client, "test")
	mt.Cleanup(func() {
		_ = database.CloseDB(context.Background())
		for _, name := range DocumentClasses() {
			RemoveDocumentClass(name)
		}
	})
}

func TestCreateDocumentClassWithoutConnection(t *testing.T) {
	t.Setenv(database.EnvConnectionString, "")
	t.Setenv(database.EnvDatabaseName, "")
	require.NoError(t, database.CloseDB(context.Background()))

	_, err := CreateDocumentClass(context.Background(), "User", "users", nil)
	assert.ErrorIs(t, err, database.ErrNotConnected)

	_, ok := LookupDocumentClass("User")
	assert.False(t, ok)
}

func TestCreateDocumentClass(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("registers by name", func(mt *mtest.T) {
		useMockConnection(mt)

		users, err := CreateDocumentClass(ctx, "User", "", schema.Schema{
			"name": {Type: types.FieldString, Required: true},
		})
		require.NoError(mt, err)
		assert.Equal(mt, "User", users.CollectionName())

		got, ok := LookupDocumentClass("User")
		require.True(mt, ok)
		assert.Same(mt, users, got)
		assert.Equal(mt, []string{"User"}, DocumentClasses())

		model, ok := database.LookupModel("User")
		require.True(mt, ok)
		assert.Equal(mt, "User", model.CollectionName())

		assert.True(mt, RemoveDocumentClass("User"))
		_, ok = database.LookupModel("User")
		assert.False(mt, ok)
		assert.False(mt, RemoveDocumentClass("User"))
	})

	mt.Run("empty name", func(mt *mtest.T) {
		useMockConnection(mt)
		_, err := CreateDocumentClass(ctx, " ", "users", nil)
		assert.ErrorIs(mt, err, ErrEmptyClassName)
	})

	mt.Run("save and find", func(mt *mtest.T) {
		useMockConnection(mt)
		users, err := CreateDocumentClass(ctx, "User", "users", schema.Schema{
			"name":    {Type: types.FieldString, Required: true},
			"email":   {Type: types.FieldEmail},
			"address": {Type: types.FieldDict},
		})
		require.NoError(mt, err)

		doc, err := users.New(map[string]any{
			"name":    "ada",
			"email":   "ada@example.com",
			"address": map[string]any{"city": "Lund"},
		})
		require.NoError(mt, err)

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, doc.Save(ctx))
		assert.False(mt, doc.IsNew())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: doc.ID()},
				{Key: "name", Value: "ada"},
				{Key: "address", Value: bson.D{{Key: "city", Value: "Lund"}}},
			},
		))
		found, err := users.Find(ctx, map[string]any{"name": "ada"})
		require.NoError(mt, err)
		first := found.FirstOrNone()
		require.NotNil(mt, first)
		city, ok := first.GetString("address.city")
		assert.True(mt, ok)
		assert.Equal(mt, "Lund", city)
		assert.Same(mt, first, found.LastOrNone())
	})
}

func TestRegisterModel(t *testing.T) {
	t.Cleanup(func() { database.UnregisterModel("Product") })

	RegisterModel[Product](mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}})

	model, ok := database.LookupModel("Product")
	require.True(t, ok)
	assert.Equal(t, "product", model.CollectionName())
	indexed, ok := model.(database.IndexedModel)
	require.True(t, ok)
	assert.Len(t, indexed.Indexes(), 1)
}

func TestService(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("bound to a database", func(mt *mtest.T) {
		svc := NewServiceWithDB[Product](mt.DB)
		assert.Equal(mt, "product", svc.Collection().Name())

		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.product", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "lamp"}, {Key: "price", Value: 9.5}},
		))
		p, err := svc.Get(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "lamp", p.Name)
		assert.Equal(mt, 9.5, p.Price)
	})

	mt.Run("global connection", func(mt *mtest.T) {
		useMockConnection(mt)
		svc := NewService[Product]()

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}))
		items := []*Product{{Name: "lamp"}, {Name: "desk"}}
		require.NoError(mt, svc.Save(ctx, items...))
		assert.False(mt, items[0].ID.IsZero())
		assert.False(mt, items[1].ID.IsZero())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.product", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: items[0].ID}, {Key: "name", Value: "lamp"}},
		))
		got, err := svc.Query(ctx, bson.M{"price": bson.M{"$lt": 10}}, options.Find().SetLimit(1))
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, items[0].ID, got[0].ID)
	})

	mt.Run("no connection", func(mt *mtest.T) {
		mt.Setenv(database.EnvConnectionString, "")
		mt.Setenv(database.EnvDatabaseName, "")
		require.NoError(mt, database.CloseDB(ctx))

		svc := NewService[Product]()
		_, err := svc.All(ctx)
		assert.ErrorIs(mt, err, database.ErrNotConnected)
		assert.Nil(mt, svc.Collection())
	})
}
