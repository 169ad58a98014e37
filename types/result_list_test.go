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
)

func TestResultListFirstLast(t *testing.T) {
	var empty ResultList[*int]
	assert.Nil(t, empty.FirstOrNone())
	assert.Nil(t, empty.LastOrNone())
	_, ok := empty.First()
	assert.False(t, ok)
	_, ok = empty.Random()
	assert.False(t, ok)

	l := ResultList[string]{"a", "b", "c"}
	assert.Equal(t, "a", l.FirstOrNone())
	assert.Equal(t, "c", l.LastOrNone())
	last, ok := l.Last()
	assert.True(t, ok)
	assert.Equal(t, "c", last)
	assert.Equal(t, 3, l.Len())

	r, ok := l.Random()
	assert.True(t, ok)
	assert.Contains(t, l, r)
}

func TestResultListTransforms(t *testing.T) {
	l := ResultList[int]{5, 2, 8, 3}

	even := l.Filter(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, ResultList[int]{2, 8}, even)

	doubled := Map(l, func(v int) int { return v * 2 })
	assert.Equal(t, ResultList[int]{10, 4, 16, 6}, doubled)

	sum := Reduce(l, func(acc int, v int) int { return acc + v }, 0)
	assert.Equal(t, 18, sum)

	groups := GroupBy(l, func(v int) bool { return v > 4 })
	assert.Equal(t, ResultList[int]{5, 8}, groups[true])
	assert.Equal(t, ResultList[int]{2, 3}, groups[false])

	l.Sort(func(a, b int) bool { return a < b })
	assert.Equal(t, ResultList[int]{2, 3, 5, 8}, l)
}
