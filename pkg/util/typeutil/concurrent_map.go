// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package typeutil

import (
	"sync"

	"go.uber.org/atomic"
)

// ConcurrentMap 是一个类型安全的并发 map，
// 底层基于 sync.Map，并额外维护元素计数。
type ConcurrentMap[K comparable, V any] struct {
	inner sync.Map
	len   atomic.Uint64
}

func NewConcurrentMap[K comparable, V any]() *ConcurrentMap[K, V] {
	return &ConcurrentMap[K, V]{}
}

// Insert 写入键值对。
// 如果键已存在，则覆盖旧值。
func (m *ConcurrentMap[K, V]) Insert(key K, value V) {
	_, loaded := m.inner.Swap(key, value)
	if !loaded {
		m.len.Inc()
	}
}

// Get 返回键对应的值。
// 第二个返回值表示键是否存在。
func (m *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	var zero V
	value, ok := m.inner.Load(key)
	if !ok {
		return zero, false
	}
	return value.(V), true
}

// GetOrInsert 返回键已有的值；若键不存在则写入给定值并返回。
// 第二个返回值表示键在调用前是否已存在。
func (m *ConcurrentMap[K, V]) GetOrInsert(key K, value V) (V, bool) {
	stored, loaded := m.inner.LoadOrStore(key, value)
	if !loaded {
		m.len.Inc()
	}
	return stored.(V), loaded
}

// GetAndRemove 移除键并返回被移除的值。
// 第二个返回值表示键是否存在。
func (m *ConcurrentMap[K, V]) GetAndRemove(key K) (V, bool) {
	var zero V
	value, loaded := m.inner.LoadAndDelete(key)
	if !loaded {
		return zero, false
	}
	m.len.Dec()
	return value.(V), true
}

// Remove 移除键。
// 如果键不存在，则忽略。
func (m *ConcurrentMap[K, V]) Remove(key K) {
	if _, loaded := m.inner.LoadAndDelete(key); loaded {
		m.len.Dec()
	}
}

// Contain 判断键是否存在。
func (m *ConcurrentMap[K, V]) Contain(key K) bool {
	_, ok := m.inner.Load(key)
	return ok
}

// Range 遍历 map 中的所有键值对。
// 当回调返回 false 时提前终止遍历。
func (m *ConcurrentMap[K, V]) Range(f func(key K, value V) bool) {
	m.inner.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

// Keys 返回所有键的切片。
func (m *ConcurrentMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.inner.Range(func(key, _ any) bool {
		keys = append(keys, key.(K))
		return true
	})
	return keys
}

// Len 返回当前元素个数。
func (m *ConcurrentMap[K, V]) Len() int {
	return int(m.len.Load())
}
