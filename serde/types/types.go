// Package types 定义序列化引擎使用的逻辑类型描述。
//
// 设计目标：
//   - 用 TypeDescriptor（名称 + 有序泛型参数）描述一个逻辑类型，例如 array<string, Order>；
//   - 用封闭的 Kind 枚举表示类型分派类别，避免在遍历引擎中散落字符串判断；
//   - 类型描述一经构造即视为只读，可在并发遍历间安全共享。
package types

import (
	"reflect"
	"strings"
)

// Direction 表示一次操作的方向：序列化或反序列化。
type Direction int

const (
	// DirectionSerialization 表示对象图 -> 文档。
	DirectionSerialization Direction = iota
	// DirectionDeserialization 表示文档 -> 对象图。
	DirectionDeserialization
)

// String 返回方向的可读名称。
func (d Direction) String() string {
	switch d {
	case DirectionSerialization:
		return "serialization"
	case DirectionDeserialization:
		return "deserialization"
	default:
		return "unknown"
	}
}

// Kind 表示类型分派类别，是一个封闭集合。
//
// 说明：
//   - 原始类别（Null/String/Int/Bool/Float/Array）由访问器的固定方法直接处理；
//   - KindObject 进入元数据驱动的对象遍历路径；
//   - KindResource 表示不可序列化的运行时资源（通道、函数、裸指针），遇到即报错。
type Kind int

const (
	KindObject Kind = iota
	KindNull
	KindString
	KindInt
	KindBool
	KindFloat
	KindArray
	KindResource
)

var kindNames = map[Kind]string{
	KindObject:   "object",
	KindNull:     "null",
	KindString:   "string",
	KindInt:      "int",
	KindBool:     "bool",
	KindFloat:    "float",
	KindArray:    "array",
	KindResource: "resource",
}

// String 返回类别的可读名称。
func (k Kind) String() string {
	return kindNames[k]
}

// 固定类型名。其余名称一律视为对象类型名。
const (
	NameNull     = "null"
	NameString   = "string"
	NameInt      = "int"
	NameBool     = "bool"
	NameFloat    = "float"
	NameArray    = "array"
	NameResource = "resource"
)

// kindByName 将类型名映射到 Kind，包含常见别名。
var kindByName = map[string]Kind{
	NameNull:     KindNull,
	"NULL":       KindNull,
	NameString:   KindString,
	NameInt:      KindInt,
	"integer":    KindInt,
	NameBool:     KindBool,
	"boolean":    KindBool,
	NameFloat:    KindFloat,
	"double":     KindFloat,
	"float32":    KindFloat,
	"float64":    KindFloat,
	NameArray:    KindArray,
	NameResource: KindResource,
}

// KindForName 返回类型名对应的分派类别。
// 未收录的名称一律视为 KindObject。
func KindForName(name string) Kind {
	if k, ok := kindByName[name]; ok {
		return k
	}
	return KindObject
}

// Type 描述一个逻辑类型：名称加上有序的泛型参数。
//
// 约定：
//   - Params 中的每个元素本身也是一个类型描述，例如 array<string, Order>；
//   - 构造完成后不得修改，遍历引擎只读；
//   - 需要替换类型时应构造新的 Type，而不是原地修改。
type Type struct {
	// Name 为逻辑类型名，例如 "string"、"array"、"Order"。
	Name string
	// Params 为有序的泛型参数。
	Params []Type
}

// New 构造一个带泛型参数的类型描述。
func New(name string, params ...Type) *Type {
	return &Type{Name: name, Params: params}
}

// Named 构造一个不带参数的类型描述。
func Named(name string) *Type {
	return &Type{Name: name}
}

// Null 返回 null 类型描述。
func Null() *Type {
	return &Type{Name: NameNull}
}

// Kind 返回该类型的分派类别。
func (t *Type) Kind() Kind {
	if t == nil {
		return KindNull
	}
	return KindForName(t.Name)
}

// Param 返回第 i 个泛型参数；越界时返回 nil。
func (t *Type) Param(i int) *Type {
	if t == nil || i < 0 || i >= len(t.Params) {
		return nil
	}
	return &t.Params[i]
}

// String 返回类型的字符串表示，例如 array<string, Order>。
func (t *Type) String() string {
	if t == nil {
		return NameNull
	}
	if len(t.Params) == 0 {
		return t.Name
	}

	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteByte('<')
	for i := range t.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.Params[i].String())
	}
	sb.WriteByte('>')
	return sb.String()
}

// Infer 根据运行时值推断类型描述。
//
// 行为：
//   - nil 推断为 null；
//   - 基础标量推断为对应原始类型；
//   - 切片、数组与映射推断为 array（参数留空，由访问器按元素递归）；
//   - 通道、函数与裸指针推断为 resource；
//   - 其余（结构体、指针、接口内包裹的对象）推断为对象类型，
//     名称由 namer 解析；namer 未命中时回退到反射类型名。
func Infer(data any, namer TypeNamer) *Type {
	if data == nil {
		return Null()
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Null()
		}
		if v.Elem().Kind() == reflect.Struct {
			break
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return Named(NameString)
	case reflect.Bool:
		return Named(NameBool)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Named(NameInt)
	case reflect.Float32, reflect.Float64:
		return Named(NameFloat)
	case reflect.Slice, reflect.Array, reflect.Map:
		return Named(NameArray)
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return Named(NameResource)
	default:
		if namer != nil {
			if name, ok := namer.NameFor(indirectType(v.Type())); ok {
				return Named(name)
			}
		}
		return Named(indirectType(v.Type()).String())
	}
}

// TypeNamer 将 Go 反射类型解析为已注册的逻辑类型名。
type TypeNamer interface {
	// NameFor 返回 rt 对应的逻辑类型名；未注册时 ok 为 false。
	NameFor(rt reflect.Type) (name string, ok bool)
}

// IsResource 报告运行时值是否属于资源类别。
func IsResource(data any) bool {
	if data == nil {
		return false
	}
	switch reflect.TypeOf(data).Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// indirectType 解开指针层，返回底层类型。
func indirectType(rt reflect.Type) reflect.Type {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt
}
