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
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// QueryFilter builds a MongoDB filter document.
type QueryFilter struct {
	filter bson.M
}

// NewQueryFilter creates a query filter, optionally starting from an existing filter.
func NewQueryFilter(filter ...bson.M) *QueryFilter {
	f := &QueryFilter{filter: bson.M{}}
	for _, m := range filter {
		for k, v := range m {
			f.filter[k] = v
		}
	}
	return f
}

func (f *QueryFilter) Eq(field string, value any) *QueryFilter {
	f.filter[field] = value
	return f
}

func (f *QueryFilter) Ne(field string, value any) *QueryFilter { return f.op(field, "$ne", value) }

func (f *QueryFilter) Gt(field string, value any) *QueryFilter { return f.op(field, "$gt", value) }

func (f *QueryFilter) Gte(field string, value any) *QueryFilter { return f.op(field, "$gte", value) }

func (f *QueryFilter) Lt(field string, value any) *QueryFilter { return f.op(field, "$lt", value) }

func (f *QueryFilter) Lte(field string, value any) *QueryFilter { return f.op(field, "$lte", value) }

func (f *QueryFilter) In(field string, values ...any) *QueryFilter {
	return f.op(field, "$in", bson.A(values))
}

func (f *QueryFilter) Exists(field string, exists bool) *QueryFilter {
	return f.op(field, "$exists", exists)
}

func (f *QueryFilter) Regex(field, pattern, flags string) *QueryFilter {
	f.op(field, "$regex", pattern)
	if flags != "" {
		f.op(field, "$options", flags)
	}
	return f
}

// op merges an operator into the field's condition so that Gt and Lt on the
// same field combine into one range.
func (f *QueryFilter) op(field, operator string, value any) *QueryFilter {
	cond, ok := f.filter[field].(bson.M)
	if !ok {
		cond = bson.M{}
	}
	cond[operator] = value
	f.filter[field] = cond
	return f
}

// Bson returns the filter document. A nil filter matches everything.
func (f *QueryFilter) Bson() bson.M {
	if f == nil || f.filter == nil {
		return bson.M{}
	}
	return f.filter
}

// PageRequest describes pagination, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "created_at DESC", "name", "-age"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// GetSort converts the orders into a sort document. "name DESC" and "-name"
// sort descending, anything else ascending.
func (p *PageRequest) GetSort() bson.D {
	sort := bson.D{}
	for _, o := range p.orders {
		parts := strings.Fields(o)
		if len(parts) == 0 {
			continue
		}
		field, dir := parts[0], 1
		if strings.HasPrefix(field, "-") {
			field, dir = strings.TrimPrefix(field, "-"), -1
		}
		if len(parts) > 1 && strings.EqualFold(parts[1], "DESC") {
			dir = -1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	return sort
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, make([]string, 0))
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders []string) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int64
	Items    []*T
}

// Pages returns the number of pages needed for Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}
