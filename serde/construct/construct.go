// Package construct 提供反序列化使用的对象构造器实现。
//
// 说明：
//   - ReflectionConstructor 为缺省实现，按类元数据反射新建零值实例；
//   - InitializedConstructor 支持把文档反序列化进调用方给定的已有对象；
//   - 构造器返回 nil 实例时导航器报 ErrConstructorMissing。
package construct

import (
	"reflect"

	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// TargetAttribute 为上下文属性键。反序列化根对象时，
// InitializedConstructor 从该属性取出复用的目标实例。
const TargetAttribute = "target"

// ReflectionConstructor 反射新建类元数据对应结构体的零值实例。
//
// 行为：
//   - 返回指向新实例的指针；
//   - 类元数据没有可实例化的结构体类型（如接口元数据未经
//     判别字段收窄）时返回 nil 实例，由导航器报错。
type ReflectionConstructor struct{}

// 编译期断言：确保 ReflectionConstructor 实现了 ObjectConstructor 接口。
var _ graph.ObjectConstructor = ReflectionConstructor{}

// NewReflectionConstructor 创建反射构造器。
func NewReflectionConstructor() ReflectionConstructor {
	return ReflectionConstructor{}
}

func (ReflectionConstructor) Construct(v graph.Visitor, cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
	if cm.GoType == nil || cm.GoType.Kind() != reflect.Struct {
		return nil, nil
	}
	return reflect.New(cm.GoType).Interface(), nil
}

// InitializedConstructor 允许把文档反序列化进已有对象。
//
// 行为：
//   - 仅对根对象生效：深度为 1 且上下文带有 TargetAttribute 时
//     直接返回该实例，嵌套对象一律走回退构造器；
//   - 目标实例与声明类型是否匹配由调用方保证。
type InitializedConstructor struct {
	fallback graph.ObjectConstructor
}

// 编译期断言：确保 InitializedConstructor 实现了 ObjectConstructor 接口。
var _ graph.ObjectConstructor = (*InitializedConstructor)(nil)

// NewInitializedConstructor 创建复用实例的构造器，fallback 为 nil 时
// 使用 ReflectionConstructor。
func NewInitializedConstructor(fallback graph.ObjectConstructor) *InitializedConstructor {
	if fallback == nil {
		fallback = ReflectionConstructor{}
	}
	return &InitializedConstructor{fallback: fallback}
}

func (c *InitializedConstructor) Construct(v graph.Visitor, cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
	if ctx.Depth() == 1 {
		if target, ok := ctx.Attribute(TargetAttribute); ok && target != nil {
			return target, nil
		}
	}
	return c.fallback.Construct(v, cm, data, t, ctx)
}
