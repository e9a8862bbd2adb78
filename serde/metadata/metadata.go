// Package metadata 定义类元数据模型与注册表。
//
// 设计目标：
//   - 类元数据描述一个可序列化类型：有序属性、判别器、生命周期回调；
//   - 元数据一经构建即只读，可在并发遍历间共享；
//   - 生命周期回调在构建期解析为函数引用，遍历期直接调用，不做名称反射；
//   - 属性的逻辑类型在首次查询时根据 Go 反射类型与注册表惰性补全。
package metadata

import (
	"reflect"
	"sync"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// LifecycleFunc 为生命周期回调。
// obj 为当前遍历节点对应的对象；返回错误将中止整个遍历。
type LifecycleFunc func(obj any) error

// Provider 将逻辑类型名解析为类元数据。
type Provider interface {
	// MetadataFor 返回 name 对应的类元数据。
	// 未注册的类型名返回 ErrTypeUnknown。
	MetadataFor(name string) (*ClassMetadata, error)
}

// Discriminator 描述多态基类的判别器配置。
type Discriminator struct {
	// FieldName 为输入数据中承载判别值的字段名。
	FieldName string
	// BaseClass 为声明判别器的基类逻辑名。
	BaseClass string
	// Map 将判别值映射到具体类的逻辑名。
	Map map[string]string
	// AsAttribute 表示文档型格式下判别值位于属性（attribute）而非子元素。
	AsAttribute bool
	// Namespace 为文档型格式下查找判别字段使用的命名空间。
	Namespace string
}

// PropertyMetadata 描述一个属性。
//
// 约定：
//   - FieldIndex 为反射字段索引路径，虚拟属性为空；
//   - Type 为 nil 表示声明类型未定，序列化时按运行时值推断，
//     反序列化时由访问器根据 GoType 与注册表解析；
//   - Static 属性不读取对象字段，序列化时直接输出 StaticValue。
type PropertyMetadata struct {
	// Name 为属性的逻辑名。
	Name string
	// SerializedName 为属性在文档中的字段名。
	SerializedName string
	// Type 为声明的逻辑类型；nil 表示运行时推断。
	Type *types.Type
	// GoType 为属性的 Go 反射类型；虚拟属性为 nil。
	GoType reflect.Type
	// FieldIndex 为反射字段索引路径。
	FieldIndex []int
	// Getter 为自定义取值函数，非 nil 时替代 FieldIndex 读取。
	Getter func(obj any) (any, error)
	// ReadOnly 表示反序列化时跳过写入。
	ReadOnly bool
	// Groups 为属性所属的分组。
	Groups []string
	// SinceVersion 表示属性自该版本起存在。
	SinceVersion *semver.Version
	// UntilVersion 表示属性至该版本止存在。
	UntilVersion *semver.Version
	// ExcludeIf 为表达式排除条件，非空即参与表达式排除。
	ExcludeIf string
	// Static 表示虚拟属性，序列化时输出固定值。
	Static bool
	// StaticValue 为虚拟属性的固定值。
	StaticValue any
}

// Value 读取对象上该属性的当前值。
//
// 行为：
//   - Static 属性直接返回固定值；
//   - 配置了 Getter 时优先调用 Getter；
//   - 否则按 FieldIndex 反射读取，自动解开对象的指针层。
func (p *PropertyMetadata) Value(obj any) (any, error) {
	if p.Static {
		return p.StaticValue, nil
	}
	if p.Getter != nil {
		return p.Getter(obj)
	}

	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	field := v.FieldByIndex(p.FieldIndex)
	if !field.IsValid() {
		return nil, nil
	}
	if isNilable(field.Kind()) && field.IsNil() {
		return nil, nil
	}
	return field.Interface(), nil
}

// ClassMetadata 描述一个可序列化类型。
//
// 约定：
//   - Properties 的声明顺序即序列化输出顺序；
//   - 遍历引擎只读，不得修改任何字段；
//   - 重复查询同一类型名应返回结构相同的元数据。
type ClassMetadata struct {
	// Name 为逻辑类型名。
	Name string
	// GoType 为对应的 Go 类型；多态基类可为接口类型。
	GoType reflect.Type
	// Properties 为有序属性列表。
	Properties []*PropertyMetadata
	// Discriminator 为多态判别器配置，无判别器时为 nil。
	Discriminator *Discriminator
	// UsesExpression 表示任一属性配置了表达式排除条件。
	UsesExpression bool
	// PreSerialize 为序列化前回调，按注册顺序执行。
	PreSerialize []LifecycleFunc
	// PostSerialize 为序列化后回调，按注册顺序执行。
	PostSerialize []LifecycleFunc
	// PostDeserialize 为反序列化后回调，按注册顺序执行。
	PostDeserialize []LifecycleFunc

	resolveOnce sync.Once
}

// FindProperty 按逻辑名查找属性；未找到时返回 nil。
func (c *ClassMetadata) FindProperty(name string) *PropertyMetadata {
	for _, p := range c.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// resolveTypes 按 Go 反射类型补全属性的声明类型。
// 只在首次查询时执行一次，此后元数据保持只读。
func (c *ClassMetadata) resolveTypes(namer types.TypeNamer) {
	c.resolveOnce.Do(func() {
		for _, p := range c.Properties {
			if p.Type == nil && p.GoType != nil {
				p.Type = typeFromGo(p.GoType, namer)
			}
		}
	})
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}
