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

package conc

// future 为只读的异步结果约束，供 AwaitAll 使用。
type future interface {
	Inner() <-chan struct{}
	Err() error
}

// Future 表示一次异步执行的结果。
//
// 说明：
//   - ch 在结果就绪后被关闭；
//   - value 与 err 在 ch 关闭前完成赋值，之后只读。
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Await 阻塞等待执行完成，返回结果与错误。
func (future *Future[T]) Await() (T, error) {
	<-future.ch
	return future.value, future.err
}

// Value 阻塞等待执行完成，仅返回结果。
func (future *Future[T]) Value() T {
	<-future.ch
	return future.value
}

// OK 阻塞等待执行完成，报告执行是否成功。
func (future *Future[T]) OK() bool {
	<-future.ch
	return future.err == nil
}

// Err 阻塞等待执行完成，仅返回错误。
func (future *Future[T]) Err() error {
	<-future.ch
	return future.err
}

// Inner 返回结果就绪通知通道。
func (future *Future[T]) Inner() <-chan struct{} {
	return future.ch
}

// Go 启动一个协程执行 fn，并返回其 Future。
func Go[T any](fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		defer close(future.ch)
		future.value, future.err = fn()
	}()
	return future
}

// AwaitAll 等待所有 Future 完成，返回遇到的第一个错误。
//
// 行为：
//   - 即使某个 Future 出错，也会继续等待剩余 Future 完成。
func AwaitAll[T future](futures ...T) error {
	var first error
	for i := range futures {
		<-futures[i].Inner()
		if first == nil && futures[i].Err() != nil {
			first = futures[i].Err()
		}
	}

	return first
}
