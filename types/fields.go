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
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// PasswordCost is the bcrypt work factor used by NewPassword.
var PasswordCost = 10

// EmailPattern is the regular expression an Email must match.
const EmailPattern = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`

var emailPattern = regexp.MustCompile(EmailPattern)

// Email is a string that has passed address validation.
type Email string

// NewEmail validates s and returns it as an Email. s is taken as is;
// surrounding whitespace makes it invalid.
func NewEmail(s string) (Email, error) {
	e := Email(s)
	if err := e.Validate(); err != nil {
		return "", err
	}
	return e, nil
}

func (e Email) Validate() error {
	if !emailPattern.MatchString(string(e)) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, string(e))
	}
	return nil
}

func (e Email) String() string { return string(e) }

func (e *Email) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := NewEmail(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

func (e Email) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(e))
}

func (e *Email) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&s); err != nil {
		return err
	}
	v, err := NewEmail(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Password holds a bcrypt hash, never the plain text.
type Password string

// NewPassword hashes plain with bcrypt.
func NewPassword(plain string) (Password, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return Password(hash), nil
}

// MustPassword is NewPassword for fixtures and seed data; it panics on error.
func MustPassword(plain string) Password {
	p, err := NewPassword(plain)
	if err != nil {
		panic(err)
	}
	return p
}

// Verify reports whether plain matches the stored hash.
func (p Password) Verify(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(p), []byte(plain)) == nil
}

// IsHashed reports whether p looks like a bcrypt hash.
func (p Password) IsHashed() bool {
	_, err := bcrypt.Cost([]byte(p))
	return err == nil
}

func (p Password) String() string { return string(p) }

func (p Password) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(p))
}

func (p *Password) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&s); err != nil {
		return err
	}
	*p = Password(s)
	return nil
}
