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
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PathSeparator separates segments in a dotted field path, as in MongoDB queries.
const PathSeparator = "."

// Dict is a document body with map access and dotted path access.
type Dict map[string]any

// Item is a single key/value pair returned by Dict.Items.
type Item struct {
	Key   string
	Value any
}

// NewDict returns a shallow copy of m as a Dict.
func NewDict(m map[string]any) Dict {
	d := make(Dict, len(m))
	for k, v := range m {
		d[k] = v
	}
	return d
}

func (d Dict) Get(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

func (d Dict) Set(key string, value any) { d[key] = value }

func (d Dict) Delete(key string) { delete(d, key) }

func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Dict) Len() int { return len(d) }

func (d Dict) Clear() {
	for k := range d {
		delete(d, k)
	}
}

// Keys returns the keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Dict) Values() []any {
	keys := d.Keys()
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = d[k]
	}
	return values
}

func (d Dict) Items() []Item {
	keys := d.Keys()
	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{Key: k, Value: d[k]}
	}
	return items
}

// Pop removes key and returns its value. When the key is absent the optional
// default is returned instead, and ok is false.
func (d Dict) Pop(key string, def ...any) (value any, ok bool) {
	if v, found := d[key]; found {
		delete(d, key)
		return v, true
	}
	if len(def) > 0 {
		return def[0], false
	}
	return nil, false
}

// PopItem removes and returns the pair with the greatest key.
func (d Dict) PopItem() (Item, bool) {
	if len(d) == 0 {
		return Item{}, false
	}
	keys := d.Keys()
	k := keys[len(keys)-1]
	v := d[k]
	delete(d, k)
	return Item{Key: k, Value: v}, true
}

func (d Dict) SetDefault(key string, value any) any {
	if v, ok := d[key]; ok {
		return v
	}
	d[key] = value
	return value
}

// Update merges the given maps into d; later maps win.
func (d Dict) Update(others ...map[string]any) {
	for _, o := range others {
		for k, v := range o {
			d[k] = v
		}
	}
}

func (d Dict) Copy() Dict {
	return NewDict(d)
}

// DeepCopy copies nested documents and arrays as well.
func (d Dict) DeepCopy() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = deepCopyValue(v)
	}
	return out
}

// Map returns d as a plain map without copying.
func (d Dict) Map() map[string]any { return d }

// GetPath resolves a dotted path such as "address.city". Numeric segments
// index into arrays.
func (d Dict) GetPath(path string) (any, bool) {
	var cur any = d
	for _, seg := range strings.Split(path, PathSeparator) {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SetPath stores value at a dotted path, creating missing intermediate Dicts.
// Numeric segments index into arrays and must be in range. It reports false,
// leaving d unchanged, when the path runs through a scalar or past the end of
// an array.
func (d Dict) SetPath(path string, value any) bool {
	segs := strings.Split(path, PathSeparator)
	var cur any = d
	for _, seg := range segs[:len(segs)-1] {
		next, ok := descend(cur, seg, true)
		if !ok {
			return false
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if m, ok := mutableDict(cur); ok {
		m[last] = value
		return true
	}
	if arr, ok := asArray(cur); ok {
		idx, ok := arrayIndex(last, len(arr))
		if !ok {
			return false
		}
		arr[idx] = value
		return true
	}
	return false
}

// DeletePath removes the value at a dotted path. It reports whether anything
// was removed. An array element is set to nil rather than removed, as $unset
// does on the server, so later indexes keep their meaning.
func (d Dict) DeletePath(path string) bool {
	segs := strings.Split(path, PathSeparator)
	var cur any = d
	for _, seg := range segs[:len(segs)-1] {
		next, ok := descend(cur, seg, false)
		if !ok {
			return false
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if m, ok := mutableDict(cur); ok {
		if _, found := m[last]; !found {
			return false
		}
		delete(m, last)
		return true
	}
	if arr, ok := asArray(cur); ok {
		idx, ok := arrayIndex(last, len(arr))
		if !ok {
			return false
		}
		arr[idx] = nil
		return true
	}
	return false
}

// descend returns the container under seg in cur. A bson.D child is replaced
// in place by its Dict form so that writes through it persist. With create, a
// missing or nil child becomes an empty Dict. Scalars are never replaced.
func descend(cur any, seg string, create bool) (any, bool) {
	var (
		v     any
		found bool
		store func(any)
	)
	if m, ok := mutableDict(cur); ok {
		v, found = m[seg]
		store = func(nv any) { m[seg] = nv }
	} else if arr, ok := asArray(cur); ok {
		idx, ok := arrayIndex(seg, len(arr))
		if !ok {
			return nil, false
		}
		v, found = arr[idx], true
		store = func(nv any) { arr[idx] = nv }
	} else {
		return nil, false
	}

	if !found || v == nil {
		if !create {
			return nil, false
		}
		n := Dict{}
		store(n)
		return n, true
	}
	switch t := v.(type) {
	case bson.D:
		n, _ := AsDict(t)
		store(n)
		return n, true
	case Dict, map[string]any, bson.M, []any, bson.A:
		return v, true
	}
	return nil, false
}

// mutableDict views the map types that share storage as a Dict. bson.D is
// excluded because AsDict copies it.
func mutableDict(v any) (Dict, bool) {
	switch m := v.(type) {
	case Dict:
		return m, true
	case map[string]any:
		return Dict(m), true
	case bson.M:
		return Dict(m), true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case bson.A:
		return a, true
	}
	return nil, false
}

func (d Dict) GetString(path string) (string, bool) {
	v, ok := d.GetPath(path)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case Email:
		return string(s), true
	case Password:
		return string(s), true
	}
	return "", false
}

func (d Dict) GetInt(path string) (int64, bool) {
	v, ok := d.GetPath(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func (d Dict) GetFloat(path string) (float64, bool) {
	v, ok := d.GetPath(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (d Dict) GetBool(path string) (bool, bool) {
	v, ok := d.GetPath(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (d Dict) GetTime(path string) (time.Time, bool) {
	v, ok := d.GetPath(path)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

// AsDict views any document-shaped value as a Dict. bson.D is converted, the
// map types share storage with v.
func AsDict(v any) (Dict, bool) {
	switch m := v.(type) {
	case Dict:
		return m, true
	case map[string]any:
		return Dict(m), true
	case bson.M:
		return Dict(m), true
	case bson.D:
		out := make(Dict, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

// ToDicts converts every embedded document in v, at any depth, to a Dict.
func ToDicts(v any) any {
	if m, ok := AsDict(v); ok {
		out := make(Dict, len(m))
		for k, val := range m {
			out[k] = ToDicts(val)
		}
		return out
	}
	switch a := v.(type) {
	case bson.A:
		out := make([]any, len(a))
		for i, val := range a {
			out[i] = ToDicts(val)
		}
		return out
	case []any:
		out := make([]any, len(a))
		for i, val := range a {
			out[i] = ToDicts(val)
		}
		return out
	}
	return v
}

func child(cur any, seg string) (any, bool) {
	if m, ok := AsDict(cur); ok {
		v, found := m[seg]
		return v, found
	}
	arr, ok := asArray(cur)
	if !ok {
		return nil, false
	}
	idx, ok := arrayIndex(seg, len(arr))
	if !ok {
		return nil, false
	}
	return arr[idx], true
}

// arrayIndex parses seg as a plain decimal index into an array of length n.
func arrayIndex(seg string, n int) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case Dict:
		return t.DeepCopy()
	case map[string]any:
		return map[string]any(Dict(t).DeepCopy())
	case bson.M:
		return bson.M(Dict(t).DeepCopy())
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: deepCopyValue(e.Value)}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	}
	return v
}
