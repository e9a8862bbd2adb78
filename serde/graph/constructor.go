package graph

import (
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// ObjectConstructor 决定反序列化时如何获得对象实例。
//
// 约定：
//   - 构造器是实例化策略的唯一权威：新建、复用已有实例或返回其它值均由其决定；
//   - 导航器只围绕构造结果驱动 StartObject / VisitProperty / EndObject，
//     不关心实例来源。
type ObjectConstructor interface {
	Construct(v Visitor, cm *metadata.ClassMetadata, data any, t *types.Type, ctx *Context) (any, error)
}

// Navigator 为对象图遍历的唯一公开入口。
//
// 约定：
//   - 每次调用推进对象图或文档图的一个节点；
//   - 访问器处理嵌套值时递归回调本入口；
//   - t 为 nil 表示类型未给出：序列化方向按运行时值推断，
//     反序列化方向立即报错。
type Navigator interface {
	Accept(data any, t *types.Type, ctx *Context) (any, error)
}
