package serde

import (
	"github.com/blang/semver/v4"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/construct"
	"github.com/lk2023060901/serde-garden-go/serde/event"
	"github.com/lk2023060901/serde-garden-go/serde/exclusion"
	"github.com/lk2023060901/serde-garden-go/serde/format/jsonfmt"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// VisitorFactory 按方向创建单次操作使用的格式访问器。
// 访问器承载操作内的装配状态，工厂每次调用都必须返回新实例。
type VisitorFactory interface {
	NewSerializationVisitor() graph.Visitor
	NewDeserializationVisitor() graph.Visitor
}

// jsonFactory 为内置 json 格式的访问器工厂。
type jsonFactory struct{}

func (jsonFactory) NewSerializationVisitor() graph.Visitor {
	return jsonfmt.NewSerializationVisitor()
}

func (jsonFactory) NewDeserializationVisitor() graph.Visitor {
	return jsonfmt.NewDeserializationVisitor()
}

// Options 为 Serializer 的构造参数。
type Options struct {
	// Registry 为类元数据注册表，必填。
	Registry *metadata.Registry

	// Handlers 为自定义处理器注册表，缺省注册内置的时间类处理器。
	Handlers *graph.HandlerRegistry

	// Dispatcher 为事件分发器，缺省不分发任何事件。
	Dispatcher event.Dispatcher

	// Constructor 决定反序列化的实例化策略，缺省优先复用上下文
	// 中的目标实例，否则反射新建。
	Constructor graph.ObjectConstructor

	// Evaluator 为表达式排除的求值器。元数据声明了 ExcludeIf
	// 而未配置求值器时，涉及的操作会报 ErrExpressionEvaluatorRequired。
	Evaluator exclusion.Evaluator

	// Formats 为附加格式的访问器工厂，与内置 json 合并，
	// 同名项覆盖内置实现。
	Formats map[string]VisitorFactory

	// MaxDepth 为对象图深度上限，0 表示 graph.DefaultMaxDepth。
	MaxDepth int

	// SerializeNulls 为空值属性写出的全局缺省，可被单次调用覆盖。
	SerializeNulls bool

	// DisableFastPath 关闭序列化方向的快路径计划。
	DisableFastPath bool
}

// CallOption 为单次操作的调用级选项。
type CallOption func(*callOptions)

type callOptions struct {
	typ            *types.Type
	typeName       string
	groups         []string
	version        string
	strategies     []exclusion.Strategy
	attributes     map[string]any
	serializeNulls *bool
	maxDepth       int
}

func evalCallOptions(opts []CallOption) (*callOptions, error) {
	co := &callOptions{attributes: make(map[string]any)}
	for _, opt := range opts {
		opt(co)
	}

	if co.typ == nil && co.typeName != "" {
		t, err := types.Parse(co.typeName)
		if err != nil {
			return nil, err
		}
		co.typ = t
	}
	return co, nil
}

// strategy 把分组、版本与自定义策略组装为单个排除策略，
// 任一策略要求跳过即跳过。
func (co *callOptions) strategy() (exclusion.Strategy, error) {
	strategies := make([]exclusion.Strategy, 0, len(co.strategies)+2)
	if len(co.groups) > 0 {
		strategies = append(strategies, exclusion.NewGroups(co.groups...))
	}
	if co.version != "" {
		v, err := semver.Parse(co.version)
		if err != nil {
			return nil, serr.WrapErrValueInvalid("semantic version", co.version, err.Error())
		}
		strategies = append(strategies, exclusion.NewVersion(v))
	}
	strategies = append(strategies, co.strategies...)

	switch len(strategies) {
	case 0:
		return nil, nil
	case 1:
		return strategies[0], nil
	default:
		return exclusion.NewDisjunction(strategies...), nil
	}
}

// WithType 指定本次操作的根类型。
func WithType(t *types.Type) CallOption {
	return func(co *callOptions) {
		co.typ = t
	}
}

// WithTypeName 以类型表达式指定根类型，例如 "Order" 或 "array<Order>"。
func WithTypeName(expr string) CallOption {
	return func(co *callOptions) {
		co.typeName = expr
	}
}

// WithGroups 启用分组排除策略，仅写出命中分组的属性。
func WithGroups(groups ...string) CallOption {
	return func(co *callOptions) {
		co.groups = append(co.groups, groups...)
	}
}

// WithVersion 启用版本排除策略，v 为语义化版本号，例如 "1.2.0"。
func WithVersion(v string) CallOption {
	return func(co *callOptions) {
		co.version = v
	}
}

// WithExclusion 追加自定义排除策略。
func WithExclusion(strategies ...exclusion.Strategy) CallOption {
	return func(co *callOptions) {
		co.strategies = append(co.strategies, strategies...)
	}
}

// WithAttribute 设置操作上下文的属性。
func WithAttribute(key string, value any) CallOption {
	return func(co *callOptions) {
		co.attributes[key] = value
	}
}

// WithSerializeNulls 覆盖空值属性写出的全局缺省。
func WithSerializeNulls(enabled bool) CallOption {
	return func(co *callOptions) {
		co.serializeNulls = &enabled
	}
}

// WithMaxDepth 覆盖对象图深度上限。
func WithMaxDepth(depth int) CallOption {
	return func(co *callOptions) {
		co.maxDepth = depth
	}
}

// WithTarget 指定反序列化复用的目标实例，仅对根对象生效。
// 需要构造器支持，缺省构造器已支持。
func WithTarget(target any) CallOption {
	return func(co *callOptions) {
		co.attributes[construct.TargetAttribute] = target
	}
}
