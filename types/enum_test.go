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
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestParseFieldType(t *testing.T) {
	assert.Equal(t, FieldString, ParseFieldType("str"))
	assert.Equal(t, FieldString, ParseFieldType("String"))
	assert.Equal(t, FieldEmail, ParseFieldType(" email "))
	assert.Equal(t, FieldDict, ParseFieldType("object"))
	assert.False(t, ParseFieldType("uuid").IsValid())
	assert.Equal(t, IllegalName, ParseFieldType("uuid").Name())
	assert.Equal(t, IllegalValue, ParseFieldType("uuid").Number())
	assert.Equal(t, "bcrypt hashed password", FieldPassword.Desc())

	text, err := FieldDate.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "date", string(text))

	var ft FieldType
	assert.NoError(t, ft.UnmarshalText([]byte("list")))
	assert.Equal(t, FieldList, ft)
}

func TestFieldTypeAccepts(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	defer func() { PasswordCost = 10 }()
	hashed := MustPassword("pw")

	cases := []struct {
		desc  string
		ft    FieldType
		value any
		want  bool
	}{
		{"string", FieldString, "x", true},
		{"string rejects int", FieldString, 1, false},
		{"int", FieldInt, 3, true},
		{"int32 from driver", FieldInt, int32(3), true},
		{"int rejects float", FieldInt, 3.0, false},
		{"float", FieldFloat, 1.5, true},
		{"bool", FieldBool, false, true},
		{"date", FieldDate, time.Now(), true},
		{"driver date", FieldDate, primitive.NewDateTimeFromTime(time.Now()), true},
		{"email value", FieldEmail, Email("a@b.io"), true},
		{"email string", FieldEmail, "a@b.io", true},
		{"bad email", FieldEmail, "a-b.io", false},
		{"password", FieldPassword, hashed, true},
		{"hashed string password", FieldPassword, string(hashed), true},
		{"plain string password", FieldPassword, "pw", false},
		{"list", FieldList, []any{1}, true},
		{"driver list", FieldList, bson.A{1}, true},
		{"dict", FieldDict, map[string]any{}, true},
		{"driver dict", FieldDict, bson.D{}, true},
		{"object id", FieldObjectID, primitive.NewObjectID(), true},
		{"any", FieldAny, struct{}{}, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.ft.Accepts(tc.value), tc.desc)
	}
}
