package event

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// ListenerFunc 为事件监听函数。
// payload 的具体类型由事件点决定，见本包的事件负载定义。
type ListenerFunc func(payload any) error

// ListenerOption 用于限定监听范围。
type ListenerOption func(*listenerKey)

// ForClass 限定仅监听指定逻辑类型名的事件。
func ForClass(class string) ListenerOption {
	return func(k *listenerKey) {
		k.class = class
	}
}

// ForFormat 限定仅监听指定格式的事件。
func ForFormat(format string) ListenerOption {
	return func(k *listenerKey) {
		k.format = format
	}
}

type listenerKey struct {
	event  string
	class  string
	format string
}

// Registry 为进程内的事件监听注册表。
//
// 说明：
//   - 注册时可用 ForClass/ForFormat 限定范围，缺省匹配任意类型或格式；
//   - 分发顺序：先精确匹配的监听者，后范围更宽的监听者，
//     同一范围内按注册顺序执行；
//   - 注册与分发都是并发安全的。
type Registry struct {
	mu        sync.RWMutex
	listeners map[listenerKey][]ListenerFunc
}

// 编译期断言：确保 Registry 实现了 Dispatcher 接口。
var _ Dispatcher = (*Registry)(nil)

// NewRegistry 创建事件监听注册表。
func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[listenerKey][]ListenerFunc),
	}
}

// Listen 注册一个监听函数。
func (r *Registry) Listen(event string, fn ListenerFunc, opts ...ListenerOption) {
	key := listenerKey{event: event}
	for _, opt := range opts {
		opt(&key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[key] = append(r.listeners[key], fn)
}

// HasListeners 报告给定事件点是否存在监听者。
func (r *Registry) HasListeners(event, typeName, format string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range matchKeys(event, typeName, format) {
		if len(r.listeners[key]) > 0 {
			return true
		}
	}
	return false
}

// Dispatch 同步分发事件，任一监听者返回错误即停止分发并透传该错误。
func (r *Registry) Dispatch(event, typeName, format string, payload any) error {
	r.mu.RLock()
	var fns []ListenerFunc
	for _, key := range matchKeys(event, typeName, format) {
		fns = append(fns, r.listeners[key]...)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		if err := fn(payload); err != nil {
			return err
		}
	}
	return nil
}

// Events 返回已注册监听的事件名，去重后按字典序排列。
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{}, len(r.listeners))
	for key := range r.listeners {
		set[key.event] = struct{}{}
	}
	events := maps.Keys(set)
	sort.Strings(events)
	return events
}

// matchKeys 返回按匹配精度从高到低排列的候选键。
func matchKeys(event, typeName, format string) [4]listenerKey {
	return [4]listenerKey{
		{event: event, class: typeName, format: format},
		{event: event, class: typeName},
		{event: event, format: format},
		{event: event},
	}
}
