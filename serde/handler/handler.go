// Package handler 提供序列化引擎的内置自定义类型处理器。
//
// 设计目标：
//  1. 时间类处理器：time.Time 与 time.Duration 以字符串读写，
//     时间布局可通过类型参数定制，例如 DateTime<'2006-01-02'>；
//  2. protobuf 处理器：proto.Message 经由 protojson 编解码，
//     以消息的完整描述符名注册，见 RegisterProto；
//  3. 处理器命中即绕过元数据遍历，返回值直接作为该节点的结果。
package handler

import (
	"encoding/json"
	"time"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// FormatJSON 为内置处理器缺省注册的格式名。
const FormatJSON = "json"

// DefaultRegistry 返回注册了全部内置处理器的注册表。
// 不传 formats 时仅注册 json 格式。
func DefaultRegistry(formats ...string) (*graph.HandlerRegistry, error) {
	if len(formats) == 0 {
		formats = []string{FormatJSON}
	}
	registry := graph.NewHandlerRegistry()
	for _, format := range formats {
		if err := RegisterBuiltins(registry, format); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// RegisterBuiltins 将内置的时间类处理器注册到 registry 的指定格式下。
func RegisterBuiltins(registry *graph.HandlerRegistry, format string) error {
	entries := []struct {
		direction types.Direction
		typeName  string
		fn        graph.HandlerFunc
	}{
		{types.DirectionSerialization, metadata.TypeNameDateTime, SerializeDateTime},
		{types.DirectionDeserialization, metadata.TypeNameDateTime, DeserializeDateTime},
		{types.DirectionSerialization, metadata.TypeNameDuration, SerializeDuration},
		{types.DirectionDeserialization, metadata.TypeNameDuration, DeserializeDuration},
	}
	for _, e := range entries {
		if err := registry.Register(e.direction, e.typeName, format, e.fn); err != nil {
			return err
		}
	}
	return nil
}

// dateTimeLayout 取 DateTime 类型的布局参数，缺省使用 RFC3339。
func dateTimeLayout(t *types.Type) string {
	if p := t.Param(0); p != nil && p.Name != "" {
		return p.Name
	}
	return time.RFC3339
}

// SerializeDateTime 将 time.Time 写出为按布局格式化的字符串。
func SerializeDateTime(v graph.Visitor, data any, t *types.Type, ctx *graph.Context) (any, error) {
	switch d := data.(type) {
	case time.Time:
		return v.VisitString(d.Format(dateTimeLayout(t)), types.Named(types.NameString), ctx)
	case *time.Time:
		if d == nil {
			return v.VisitNil(types.Null(), ctx)
		}
		return v.VisitString(d.Format(dateTimeLayout(t)), types.Named(types.NameString), ctx)
	default:
		return nil, serr.WrapErrValueInvalid("time.Time", data)
	}
}

// DeserializeDateTime 按布局解析时间字符串，返回 time.Time。
func DeserializeDateTime(v graph.Visitor, data any, t *types.Type, ctx *graph.Context) (any, error) {
	s, ok := data.(string)
	if !ok {
		return nil, serr.WrapErrValueInvalid("datetime string", data)
	}
	tm, err := time.Parse(dateTimeLayout(t), s)
	if err != nil {
		return nil, serr.WrapErrValueInvalid("datetime string", data, err.Error())
	}
	return tm, nil
}

// SerializeDuration 将 time.Duration 写出为 1h30m0s 形式的字符串。
func SerializeDuration(v graph.Visitor, data any, t *types.Type, ctx *graph.Context) (any, error) {
	d, ok := data.(time.Duration)
	if !ok {
		return nil, serr.WrapErrValueInvalid("time.Duration", data)
	}
	return v.VisitString(d.String(), types.Named(types.NameString), ctx)
}

// DeserializeDuration 解析时长。
//
// 行为：
//   - 字符串按 time.ParseDuration 解析；
//   - 数值按纳秒计数处理，兼容标准库对 time.Duration 的整数编码。
func DeserializeDuration(v graph.Visitor, data any, t *types.Type, ctx *graph.Context) (any, error) {
	switch d := data.(type) {
	case string:
		dur, err := time.ParseDuration(d)
		if err != nil {
			return nil, serr.WrapErrValueInvalid("duration string", data, err.Error())
		}
		return dur, nil
	case json.Number:
		n, err := d.Int64()
		if err != nil {
			return nil, serr.WrapErrValueInvalid("duration", data, err.Error())
		}
		return time.Duration(n), nil
	case int64:
		return time.Duration(d), nil
	case float64:
		return time.Duration(int64(d)), nil
	default:
		return nil, serr.WrapErrValueInvalid("duration", data)
	}
}
