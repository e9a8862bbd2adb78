// Package event 定义遍历过程中的生命周期事件点与分发接口。
//
// 设计目标：
//   - 引擎只负责在固定事件点发布事件，分发与监听由外部实现；
//   - 默认提供空实现（无监听者），引擎内部不做条件判空；
//   - 事件负载按事件语义区分可变字段：监听者可借此改写类型或原始数据。
package event

import (
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// 固定事件名。
const (
	PreSerializeName    = "pre_serialize"
	PostSerializeName   = "post_serialize"
	PreDeserializeName  = "pre_deserialize"
	PostDeserializeName = "post_deserialize"
)

// PreSerializeEvent 在对象节点元数据加载前发布。
// 监听者可替换 Type 以改写后续遍历使用的类型。
type PreSerializeEvent struct {
	Type *types.Type
	Data any
}

// PostSerializeEvent 在对象节点全部属性访问完成后发布，负载只读。
type PostSerializeEvent struct {
	Type *types.Type
	Data any
}

// PreDeserializeEvent 在文档节点元数据加载前发布。
// 监听者可同时替换 Type 与 Data，以改写目标类型或原始输入。
type PreDeserializeEvent struct {
	Type *types.Type
	Data any
}

// PostDeserializeEvent 在对象重建完成后发布，负载只读。
type PostDeserializeEvent struct {
	Type   *types.Type
	Object any
}

// Dispatcher 将事件分发给按（事件名、类型名、格式）注册的监听者。
type Dispatcher interface {
	// HasListeners 报告给定事件点是否存在监听者。
	// 引擎以此决定是否构造事件负载。
	HasListeners(event, typeName, format string) bool

	// Dispatch 同步分发事件，任一监听者返回错误即中止遍历。
	Dispatch(event, typeName, format string, payload any) error
}

// NopDispatcher 为无监听者的空实现。
type NopDispatcher struct{}

// 编译期断言：确保 NopDispatcher 实现了 Dispatcher 接口。
var _ Dispatcher = NopDispatcher{}

// NewNopDispatcher 创建空分发器。
func NewNopDispatcher() NopDispatcher {
	return NopDispatcher{}
}

// HasListeners 恒为 false。
func (NopDispatcher) HasListeners(event, typeName, format string) bool {
	return false
}

// Dispatch 不做任何事。
func (NopDispatcher) Dispatch(event, typeName, format string, payload any) error {
	return nil
}
