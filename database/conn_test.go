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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEnsureConnectedWithoutEnvironment(t *testing.T) {
	require.NoError(t, CloseDB(context.Background()))
	t.Setenv(EnvConnectionString, "")
	t.Setenv(EnvDatabaseName, "")

	db, err := EnsureConnected(context.Background())
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGlobalAccessorsBeforeInit(t *testing.T) {
	require.NoError(t, CloseDB(context.Background()))

	assert.Nil(t, GetDB())
	assert.Nil(t, GetClient())
	assert.False(t, IsConnected())
	assert.Nil(t, GetConfig())
	assert.Equal(t, "Database not initialized", GetHealthStatus(context.Background()).LastError)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
	assert.ErrorIs(t, RunMigrations(context.Background()), ErrNotInitialized)
	assert.ErrorIs(t, InitData(context.Background()), ErrNotInitialized)
}

func TestInitDBRejectsNilConfig(t *testing.T) {
	_, err := InitDB(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInitDBWithClient(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("client becomes the global connection", func(mt *mtest.T) {
		mt.Cleanup(func() { _ = CloseDB(context.Background()) })

		db := InitDBWithClient(mt.Client, "shop")
		require.NotNil(mt, db)
		assert.Equal(mt, "shop", db.Name())
		assert.True(mt, IsConnected())
		assert.Same(mt, mt.Client, GetClient())
		assert.Equal(mt, "shop", GetConfig().ConnectionConfig.DBName)

		got, err := EnsureConnected(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, "shop", got.Name())
	})
}
