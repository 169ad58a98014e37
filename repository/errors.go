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

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidID         = errors.New("invalid _id")
	ErrUnsavedDocument   = errors.New("document has not been saved")
	ErrCollectionMissing = errors.New("the collection does not exist")
	ErrUnknownMethod     = errors.New("unknown document method")
	ErrMissingID         = errors.New("entity has no _id")
	ErrInvalidIndex      = errors.New("invalid index definition")
)
