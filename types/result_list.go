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
	"math/rand/v2"
	"sort"
)

// ResultList is the result of a query, with convenience accessors.
type ResultList[T any] []T

func (l ResultList[T]) Len() int { return len(l) }

// FirstOrNone returns the first element, or the zero value of T when the list is empty.
func (l ResultList[T]) FirstOrNone() T {
	v, _ := l.First()
	return v
}

// LastOrNone returns the last element, or the zero value of T when the list is empty.
func (l ResultList[T]) LastOrNone() T {
	v, _ := l.Last()
	return v
}

func (l ResultList[T]) First() (T, bool) {
	if len(l) == 0 {
		var zero T
		return zero, false
	}
	return l[0], true
}

func (l ResultList[T]) Last() (T, bool) {
	if len(l) == 0 {
		var zero T
		return zero, false
	}
	return l[len(l)-1], true
}

// Filter returns a new list holding the elements for which keep returns true.
func (l ResultList[T]) Filter(keep func(T) bool) ResultList[T] {
	out := make(ResultList[T], 0, len(l))
	for _, v := range l {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Sort sorts the list in place. The sort is stable.
func (l ResultList[T]) Sort(less func(a, b T) bool) {
	sort.SliceStable(l, func(i, j int) bool { return less(l[i], l[j]) })
}

// Random returns a random element.
func (l ResultList[T]) Random() (T, bool) {
	if len(l) == 0 {
		var zero T
		return zero, false
	}
	return l[rand.IntN(len(l))], true
}

// Map applies fn to every element of l.
func Map[T, U any](l ResultList[T], fn func(T) U) ResultList[U] {
	out := make(ResultList[U], len(l))
	for i, v := range l {
		out[i] = fn(v)
	}
	return out
}

// Reduce folds l into a single value starting from initial.
func Reduce[T, A any](l ResultList[T], fn func(acc A, v T) A, initial A) A {
	acc := initial
	for _, v := range l {
		acc = fn(acc, v)
	}
	return acc
}

// GroupBy groups the elements of l by the key returned from keyFn. Element
// order inside each group follows l.
func GroupBy[T any, K comparable](l ResultList[T], keyFn func(T) K) map[K]ResultList[T] {
	groups := make(map[K]ResultList[T])
	for _, v := range l {
		k := keyFn(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}
