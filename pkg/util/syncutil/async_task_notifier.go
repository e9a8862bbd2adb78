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

// AsyncTaskNotifier 用于管理一个后台任务的生命周期：
// 外部通过 Cancel 通知任务退出，任务通过 Finish 上报结束结果。
type AsyncTaskNotifier[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	future *Future[T]
}

// NewAsyncTaskNotifier 创建一个新的异步任务通知器。
func NewAsyncTaskNotifier[T any]() *AsyncTaskNotifier[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncTaskNotifier[T]{
		ctx:    ctx,
		cancel: cancel,
		future: NewFuture[T](),
	}
}

// Context 返回任务应监听的上下文，Cancel 之后 Done 会被触发。
func (n *AsyncTaskNotifier[T]) Context() context.Context {
	return n.ctx
}

// Cancel 通知后台任务退出。
// 该调用不会等待任务真正结束，需要配合 BlockUntilFinish 使用。
func (n *AsyncTaskNotifier[T]) Cancel() {
	n.cancel()
}

// Finish 由后台任务调用，上报任务结束结果。
// 只允许调用一次。
func (n *AsyncTaskNotifier[T]) Finish(result T) {
	n.future.Set(result)
}

// FinishChan 返回一个在任务结束后关闭的 channel。
func (n *AsyncTaskNotifier[T]) FinishChan() <-chan struct{} {
	return n.future.Done()
}

// BlockUntilFinish 阻塞等待后台任务结束。
func (n *AsyncTaskNotifier[T]) BlockUntilFinish() T {
	return n.future.Get()
}
