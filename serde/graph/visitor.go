package graph

import (
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// Visitor 抽象了格式相关的读写能力。
//
// 约定：
//   - 序列化方向各 Visit 方法产出格式侧的值，反序列化方向产出重建后的 Go 值；
//   - 访问器在处理嵌套值（数组元素、属性值）时必须回调 ctx.Navigator().Accept，
//     由导航器统一完成类型分派与策略检查；
//   - StartObject / VisitProperty / EndObject 三个方法由导航器按属性声明顺序驱动，
//     EndObject 的返回值即该对象节点的结果。
type Visitor interface {
	// Prepare 在遍历开始前预处理原始输入。
	// 序列化方向通常原样返回；反序列化方向在此将字节序列解析为文档树。
	Prepare(data any) (any, error)

	// VisitNil 处理空值节点。
	VisitNil(t *types.Type, ctx *Context) (any, error)
	// VisitString 处理字符串节点。
	VisitString(data any, t *types.Type, ctx *Context) (any, error)
	// VisitBool 处理布尔节点。
	VisitBool(data any, t *types.Type, ctx *Context) (any, error)
	// VisitInt 处理整数节点。
	VisitInt(data any, t *types.Type, ctx *Context) (any, error)
	// VisitFloat 处理浮点节点。
	VisitFloat(data any, t *types.Type, ctx *Context) (any, error)
	// VisitArray 处理数组节点，元素通过导航器递归处理。
	VisitArray(data any, t *types.Type, ctx *Context) (any, error)

	// StartObject 进入一个对象节点。
	StartObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *Context) error
	// VisitProperty 处理对象的一个属性。
	// 序列化方向 data 为对象本身；反序列化方向 data 为文档节点。
	VisitProperty(pm *metadata.PropertyMetadata, data any, ctx *Context) error
	// EndObject 离开对象节点，返回该节点的结果。
	EndObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *Context) (any, error)

	// Result 将导航器的顶层输出转换为最终结果。
	// 例如 JSON 序列化访问器在此将值树编码为字节序列。
	Result(root any) (any, error)
}

// NullChecker 为访问器的可选能力：识别格式层面的"空值"。
// 实现了该接口的访问器可以把非 nil 的输入判定为空值节点，
// 其判定优先于显式声明与运行时推断的类型。
type NullChecker interface {
	IsNull(data any) bool
}

// Node 为文档节点的可选能力：属性与命名空间查找。
// 判别器解析在键值结构之外还会按此接口探测判别字段。
type Node interface {
	// Attribute 返回节点上指定名字的属性值。
	Attribute(name string) (string, bool)
	// Child 返回指定名字的子节点。
	Child(name string) (any, bool)
	// NamespacedChild 返回指定命名空间下的子节点。
	NamespacedChild(ns, name string) (any, bool)
}
