package handler

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/lk2023060901/serde-garden-go/internal/json"
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// ProtoName 返回消息的完整描述符名，即注册处理器时使用的类型名。
// 属性元数据可通过 WithTypeName(ProtoName(msg)) 指向该处理器。
func ProtoName(message proto.Message) string {
	return string(message.ProtoReflect().Descriptor().FullName())
}

// RegisterProto 为一个 protobuf 消息类型注册双向处理器。
//
// 行为：
//   - 序列化：消息经 protojson 编码后还原为文档树（对象为 map、
//     周知类型为标量），直接作为节点结果；
//   - 反序列化：文档子树重新编码为 JSON 后交给 protojson 解析，
//     返回新构造的消息；
//   - 未知字段在反序列化时丢弃，字段名使用 proto 原始名。
func RegisterProto(registry *graph.HandlerRegistry, format string, message proto.Message) error {
	name := ProtoName(message)
	mt := message.ProtoReflect().Type()

	marshal := protojson.MarshalOptions{UseProtoNames: true}
	unmarshal := protojson.UnmarshalOptions{DiscardUnknown: true}

	serialize := func(v graph.Visitor, data any, t *types.Type, ctx *graph.Context) (any, error) {
		msg, ok := data.(proto.Message)
		if !ok {
			return nil, serr.WrapErrValueInvalid("proto.Message", data)
		}
		raw, err := marshal.Marshal(msg)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, serr.WrapErrDocumentInvalid(ctx.Format(), err)
		}
		return doc, nil
	}

	deserialize := func(v graph.Visitor, data any, t *types.Type, ctx *graph.Context) (any, error) {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, serr.WrapErrDocumentInvalid(ctx.Format(), err)
		}
		msg := mt.New().Interface()
		if err := unmarshal.Unmarshal(raw, msg); err != nil {
			return nil, serr.WrapErrDocumentInvalid(ctx.Format(), err)
		}
		return msg, nil
	}

	if err := registry.Register(types.DirectionSerialization, name, format, serialize); err != nil {
		return err
	}
	return registry.Register(types.DirectionDeserialization, name, format, deserialize)
}
