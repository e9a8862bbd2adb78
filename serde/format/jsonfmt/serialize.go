// Package jsonfmt 提供 JSON 格式的序列化与反序列化访问器。
//
// 设计目标：
//  1. 序列化访问器先把对象图装配成文档树（对象为 map、集合为切片或
//     map、其余为标量），Result 阶段一次性编码为 JSON 字节序列；
//  2. 反序列化访问器以 UseNumber 模式解析文档，数值以 json.Number
//     形式进入对象图，回填字段时按目标类型收窄；
//  3. 嵌套值一律递归回调导航器，访问器自身不理解类元数据语义。
package jsonfmt

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/lk2023060901/serde-garden-go/internal/json"
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// FormatName 为本包访问器对应的格式名。
const FormatName = "json"

// SerializationVisitor 把对象图装配成 JSON 文档树。
//
// 说明：
//   - StartObject/EndObject 维护当前对象的 map 栈，嵌套对象的结果
//     经导航器的返回值回流到外层属性；
//   - 命中快路径计划的原生标量属性跳过导航器递归直接写入；
//   - 空值属性仅在 ShouldSerializeNulls 时写入输出；
//   - 访问器承载单次操作的装配状态，不可跨操作复用。
type SerializationVisitor struct {
	stack []map[string]any
}

// 编译期断言：确保 SerializationVisitor 实现了 Visitor 与 NullChecker 接口。
var (
	_ graph.Visitor     = (*SerializationVisitor)(nil)
	_ graph.NullChecker = (*SerializationVisitor)(nil)
)

// NewSerializationVisitor 创建 JSON 序列化访问器。
func NewSerializationVisitor() *SerializationVisitor {
	return &SerializationVisitor{}
}

func (v *SerializationVisitor) Prepare(data any) (any, error) {
	return data, nil
}

// IsNull 识别接口值中携带的 typed-nil 指针与空集合，统一按空值处理。
func (v *SerializationVisitor) IsNull(data any) bool {
	if data == nil {
		return true
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func (v *SerializationVisitor) VisitNil(t *types.Type, ctx *graph.Context) (any, error) {
	return nil, nil
}

func (v *SerializationVisitor) VisitString(data any, t *types.Type, ctx *graph.Context) (any, error) {
	switch d := data.(type) {
	case string:
		return d, nil
	case []byte:
		return string(d), nil
	}
	if rv := reflect.ValueOf(data); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, serr.WrapErrValueInvalid(types.NameString, data)
}

func (v *SerializationVisitor) VisitBool(data any, t *types.Type, ctx *graph.Context) (any, error) {
	if rv := reflect.ValueOf(data); rv.Kind() == reflect.Bool {
		return rv.Bool(), nil
	}
	return nil, serr.WrapErrValueInvalid(types.NameBool, data)
}

func (v *SerializationVisitor) VisitInt(data any, t *types.Type, ctx *graph.Context) (any, error) {
	rv := reflect.ValueOf(data)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		return rv.Uint(), nil
	case rv.CanFloat():
		return int64(rv.Float()), nil
	}
	return nil, serr.WrapErrValueInvalid(types.NameInt, data)
}

func (v *SerializationVisitor) VisitFloat(data any, t *types.Type, ctx *graph.Context) (any, error) {
	rv := reflect.ValueOf(data)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	return nil, serr.WrapErrValueInvalid(types.NameFloat, data)
}

func (v *SerializationVisitor) VisitArray(data any, t *types.Type, ctx *graph.Context) (any, error) {
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elemType := elemTypeOf(t)
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := ctx.Navigator().Accept(rv.Index(i).Interface(), elemType, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case reflect.Map:
		elemType := elemTypeOf(t)
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elem, err := ctx.Navigator().Accept(iter.Value().Interface(), elemType, ctx)
			if err != nil {
				return nil, err
			}
			out[mapKey(iter.Key())] = elem
		}
		return out, nil
	default:
		return nil, serr.WrapErrValueInvalid(types.NameArray, data)
	}
}

func (v *SerializationVisitor) StartObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) error {
	v.stack = append(v.stack, make(map[string]any, len(cm.Properties)))
	return nil
}

func (v *SerializationVisitor) VisitProperty(pm *metadata.PropertyMetadata, data any, ctx *graph.Context) error {
	value, err := pm.Value(data)
	if err != nil {
		return err
	}
	if value == nil {
		if ctx.ShouldSerializeNulls() {
			v.write(pm.SerializedName, nil)
		}
		return nil
	}

	// 快路径：计划标记的原生标量属性不经过导航器递归。
	if plan := ctx.Plans().For(ctx.CurrentClass()); plan != nil {
		if kind, ok := plan.Primitive(pm); ok {
			if scalar, ok := fastScalar(kind, value); ok {
				v.write(pm.SerializedName, scalar)
				return nil
			}
		}
	}

	result, err := ctx.Navigator().Accept(value, pm.Type, ctx)
	if err != nil {
		return err
	}
	if result == nil && !ctx.ShouldSerializeNulls() {
		return nil
	}
	v.write(pm.SerializedName, result)
	return nil
}

func (v *SerializationVisitor) EndObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
	top := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return top, nil
}

// Result 把装配完成的文档树编码为 JSON 字节序列。
func (v *SerializationVisitor) Result(root any) (any, error) {
	out, err := json.Marshal(root)
	if err != nil {
		return nil, serr.WrapErrDocumentInvalid(FormatName, err)
	}
	return out, nil
}

func (v *SerializationVisitor) write(name string, value any) {
	v.stack[len(v.stack)-1][name] = value
}

// fastScalar 按计划标记的种类把值规整为 JSON 标量；种类与实际值
// 不符时返回 false，回落到导航器慢路径。
func fastScalar(kind types.Kind, value any) (any, bool) {
	rv := reflect.ValueOf(value)
	switch kind {
	case types.KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), true
		}
	case types.KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), true
		}
	case types.KindInt:
		if rv.CanInt() {
			return rv.Int(), true
		}
		if rv.CanUint() {
			return rv.Uint(), true
		}
	case types.KindFloat:
		if rv.CanFloat() {
			return rv.Float(), true
		}
	}
	return nil, false
}

// elemTypeOf 取集合元素的声明类型：array<V> 取 V，array<K,V> 取 V，
// 未参数化时返回 nil 交给运行时推断。
func elemTypeOf(t *types.Type) *types.Type {
	if t == nil {
		return nil
	}
	switch len(t.Params) {
	case 1:
		return t.Param(0)
	case 2:
		return t.Param(1)
	default:
		return nil
	}
}

// mapKey 把映射键规整为 JSON 对象的字符串键。
func mapKey(key reflect.Value) string {
	switch {
	case key.Kind() == reflect.String:
		return key.String()
	case key.CanInt():
		return strconv.FormatInt(key.Int(), 10)
	case key.CanUint():
		return strconv.FormatUint(key.Uint(), 10)
	default:
		return fmt.Sprintf("%v", key.Interface())
	}
}
