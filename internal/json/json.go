// Package json 统一封装项目内部使用的 JSON 编解码实现。
//
// 说明：
//   - 底层使用 bytedance/sonic，并启用与标准库兼容的配置；
//   - 项目内部一律通过本包进行 JSON 编解码，避免直接依赖具体实现。
package json

import (
	"github.com/bytedance/sonic"
)

var (
	// json 为与标准库 encoding/json 行为兼容的 sonic 配置。
	json = sonic.ConfigStd

	// Marshal 序列化 v 为 JSON 字节序列。
	Marshal = json.Marshal
	// Unmarshal 反序列化 JSON 字节序列到 v。
	Unmarshal = json.Unmarshal
	// MarshalIndent 序列化 v 为带缩进的 JSON 字节序列。
	MarshalIndent = json.MarshalIndent
	// NewDecoder 基于 io.Reader 创建解码器。
	NewDecoder = json.NewDecoder
	// NewEncoder 基于 io.Writer 创建编码器。
	NewEncoder = json.NewEncoder
	// Valid 校验 data 是否为合法 JSON。
	Valid = json.Valid
)
