package jsonfmt

import (
	"encoding/json"
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// jsonIter 为 UseNumber 模式的解析配置，数值保真为 json.Number，
// 避免大整数在 float64 中间表示里丢失精度。
var jsonIter = jsoniter.Config{UseNumber: true}.Froze()

// DeserializationVisitor 把 JSON 文档回填到构造出的对象上。
//
// 说明：
//   - Prepare 解析字节或字符串输入，已解析的文档树原样透传，
//     供 FromMap 一类入口使用；
//   - StartObject 压入构造好的实例，VisitProperty 按序列化名抽取
//     子树、递归导航后写入对应字段；
//   - 文档缺失的键保持字段原值，显式的 null 清零字段。
type DeserializationVisitor struct {
	stack []any
}

// 编译期断言：确保 DeserializationVisitor 实现了 Visitor 接口。
var _ graph.Visitor = (*DeserializationVisitor)(nil)

// NewDeserializationVisitor 创建 JSON 反序列化访问器。
func NewDeserializationVisitor() *DeserializationVisitor {
	return &DeserializationVisitor{}
}

func (v *DeserializationVisitor) Prepare(data any) (any, error) {
	switch d := data.(type) {
	case []byte:
		return v.parse(d)
	case json.RawMessage:
		return v.parse(d)
	case string:
		return v.parse([]byte(d))
	default:
		return data, nil
	}
}

func (v *DeserializationVisitor) parse(raw []byte) (any, error) {
	var doc any
	if err := jsonIter.Unmarshal(raw, &doc); err != nil {
		return nil, serr.WrapErrDocumentInvalid(FormatName, err)
	}
	return doc, nil
}

func (v *DeserializationVisitor) VisitNil(t *types.Type, ctx *graph.Context) (any, error) {
	return nil, nil
}

func (v *DeserializationVisitor) VisitString(data any, t *types.Type, ctx *graph.Context) (any, error) {
	switch d := data.(type) {
	case string:
		return d, nil
	case json.Number:
		return d.String(), nil
	default:
		return nil, serr.WrapErrValueInvalid(types.NameString, data)
	}
}

func (v *DeserializationVisitor) VisitBool(data any, t *types.Type, ctx *graph.Context) (any, error) {
	if b, ok := data.(bool); ok {
		return b, nil
	}
	return nil, serr.WrapErrValueInvalid(types.NameBool, data)
}

func (v *DeserializationVisitor) VisitInt(data any, t *types.Type, ctx *graph.Context) (any, error) {
	if n, ok := data.(json.Number); ok {
		i, err := n.Int64()
		if err != nil {
			return nil, serr.WrapErrValueInvalid(types.NameInt, data, err.Error())
		}
		return i, nil
	}

	rv := reflect.ValueOf(data)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		return int64(rv.Uint()), nil
	case rv.CanFloat():
		return int64(rv.Float()), nil
	}
	return nil, serr.WrapErrValueInvalid(types.NameInt, data)
}

func (v *DeserializationVisitor) VisitFloat(data any, t *types.Type, ctx *graph.Context) (any, error) {
	if n, ok := data.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, serr.WrapErrValueInvalid(types.NameFloat, data, err.Error())
		}
		return f, nil
	}

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

func (v *DeserializationVisitor) VisitArray(data any, t *types.Type, ctx *graph.Context) (any, error) {
	elemType := elemTypeOf(t)

	switch d := data.(type) {
	case []any:
		out := make([]any, 0, len(d))
		for _, item := range d {
			elem, err := ctx.Navigator().Accept(item, elemType, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case map[string]any:
		// array<K,V> 声明对应 JSON 对象形式的映射。
		out := make(map[string]any, len(d))
		for key, item := range d {
			elem, err := ctx.Navigator().Accept(item, elemType, ctx)
			if err != nil {
				return nil, err
			}
			out[key] = elem
		}
		return out, nil
	default:
		return nil, serr.WrapErrValueInvalid(types.NameArray, data)
	}
}

func (v *DeserializationVisitor) StartObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) error {
	v.stack = append(v.stack, data)
	return nil
}

func (v *DeserializationVisitor) VisitProperty(pm *metadata.PropertyMetadata, data any, ctx *graph.Context) error {
	// 虚拟属性没有落点，反序列化直接忽略。
	if len(pm.FieldIndex) == 0 {
		return nil
	}

	doc, ok := data.(map[string]any)
	if !ok {
		return serr.WrapErrValueInvalid("object", data)
	}
	raw, present := doc[pm.SerializedName]
	if !present {
		return nil
	}

	value, err := ctx.Navigator().Accept(raw, pm.Type, ctx)
	if err != nil {
		return err
	}

	obj := reflect.ValueOf(v.stack[len(v.stack)-1])
	if obj.Kind() != reflect.Pointer || obj.IsNil() {
		return serr.WrapErrValueInvalid("pointer to struct", v.stack[len(v.stack)-1])
	}
	return assign(obj.Elem().FieldByIndex(pm.FieldIndex), value)
}

func (v *DeserializationVisitor) EndObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
	obj := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return obj, nil
}

func (v *DeserializationVisitor) Result(root any) (any, error) {
	return root, nil
}
