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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestQueryFilter(t *testing.T) {
	f := NewQueryFilter(bson.M{"active": true}).
		Gte("age", 18).
		Lt("age", 65).
		In("role", "admin", "editor").
		Exists("deleted_at", false).
		Regex("name", "^a", "i")

	assert.Equal(t, bson.M{
		"active":     true,
		"age":        bson.M{"$gte": 18, "$lt": 65},
		"role":       bson.M{"$in": bson.A{"admin", "editor"}},
		"deleted_at": bson.M{"$exists": false},
		"name":       bson.M{"$regex": "^a", "$options": "i"},
	}, f.Bson())

	var nilFilter *QueryFilter
	assert.Equal(t, bson.M{}, nilFilter.Bson())
}

func TestPageRequest(t *testing.T) {
	p := NewPageRequestWithOrders(0, 0, []string{"created_at DESC", "-age", "name"})
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, 10, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())
	assert.Equal(t, bson.D{
		{Key: "created_at", Value: -1},
		{Key: "age", Value: -1},
		{Key: "name", Value: 1},
	}, p.GetSort())

	p = NewDefaultPageRequest(3, 20)
	assert.Equal(t, 40, p.GetOffset())

	pg := NewDefaultPagination[struct{}](1, 20)
	assert.Equal(t, 0, pg.Pages())
	pg.Total = 41
	assert.Equal(t, 3, pg.Pages())
}
