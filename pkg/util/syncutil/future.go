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

package syncutil

import "context"

// Future 表示一个可能尚未就绪的值。
// 与 channel 不同，Future 的结果可以被多次读取。
type Future[T any] struct {
	ch    chan struct{}
	value T
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Set 设置结果值并唤醒所有等待者。
// 重复调用会 panic，调用方需要保证只设置一次。
func (f *Future[T]) Set(value T) {
	f.value = value
	close(f.ch)
}

// Get 阻塞等待并返回结果值。
func (f *Future[T]) Get() T {
	<-f.ch
	return f.value
}

// GetWithContext 阻塞等待结果值，直到 ctx 被取消。
func (f *Future[T]) GetWithContext(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-f.ch:
		return f.value, nil
	}
}

// Done 返回一个在结果就绪后关闭的 channel。
func (f *Future[T]) Done() <-chan struct{} {
	return f.ch
}

// Ready 返回结果是否已经就绪。
func (f *Future[T]) Ready() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}
