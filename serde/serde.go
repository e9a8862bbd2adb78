// Package serde 为对象图序列化引擎的门面。
//
// 设计目标：
//  1. 一个 Serializer 实例绑定元数据注册表、处理器、事件分发器与
//     构造器，进程内长期复用，并发安全；
//  2. 单次操作的可变状态（访问器与上下文）按调用创建，调用级
//     选项覆盖实例级缺省；
//  3. 格式通过访问器工厂扩展，内置 json。
package serde

import (
	"fmt"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/serde-garden-go/pkg/log"
	"github.com/lk2023060901/serde-garden-go/pkg/metrics"
	"github.com/lk2023060901/serde-garden-go/pkg/util/conc"
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/construct"
	"github.com/lk2023060901/serde-garden-go/serde/event"
	"github.com/lk2023060901/serde-garden-go/serde/exclusion"
	"github.com/lk2023060901/serde-garden-go/serde/format/jsonfmt"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/handler"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// FormatJSON 为内置 JSON 格式的格式名。
const FormatJSON = jsonfmt.FormatName

// Serializer 为序列化引擎的入口。
type Serializer struct {
	registry *metadata.Registry
	handlers *graph.HandlerRegistry
	formats  map[string]VisitorFactory
	plans    *graph.PlanCache

	serNav   *graph.SerializationNavigator
	deserNav *graph.DeserializationNavigator

	maxDepth       int
	serializeNulls bool
}

// NewSerializer 创建序列化引擎实例，未给出的选项按缺省值填充。
func NewSerializer(opts Options) (*Serializer, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("serde: metadata registry is nil")
	}
	if opts.Handlers == nil {
		handlers, err := handler.DefaultRegistry()
		if err != nil {
			return nil, err
		}
		opts.Handlers = handlers
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = event.NewNopDispatcher()
	}
	if opts.Constructor == nil {
		opts.Constructor = construct.NewInitializedConstructor(nil)
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = graph.DefaultMaxDepth
	}

	var expression *exclusion.Expression
	if opts.Evaluator != nil {
		expression = exclusion.NewExpression(opts.Evaluator)
	}

	formats := map[string]VisitorFactory{FormatJSON: jsonFactory{}}
	for name, factory := range opts.Formats {
		formats[name] = factory
	}

	serNav, err := graph.NewSerializationNavigator(graph.SerializationNavigatorOptions{
		Provider:   opts.Registry,
		Handlers:   opts.Handlers,
		Dispatcher: opts.Dispatcher,
		Expression: expression,
	})
	if err != nil {
		return nil, err
	}

	deserNav, err := graph.NewDeserializationNavigator(graph.DeserializationNavigatorOptions{
		Provider:    opts.Registry,
		Constructor: opts.Constructor,
		Handlers:    opts.Handlers,
		Dispatcher:  opts.Dispatcher,
		Expression:  expression,
	})
	if err != nil {
		return nil, err
	}

	var plans *graph.PlanCache
	if !opts.DisableFastPath {
		plans = graph.NewPlanCache()
	}

	return &Serializer{
		registry:       opts.Registry,
		handlers:       opts.Handlers,
		formats:        formats,
		plans:          plans,
		serNav:         serNav,
		deserNav:       deserNav,
		maxDepth:       opts.MaxDepth,
		serializeNulls: opts.SerializeNulls,
	}, nil
}

// Registry 返回绑定的类元数据注册表。
func (s *Serializer) Registry() *metadata.Registry {
	return s.registry
}

// Handlers 返回处理器注册表，可在构造后继续追加自定义处理器，
// 例如 handler.RegisterProto。
func (s *Serializer) Handlers() *graph.HandlerRegistry {
	return s.handlers
}

// Serialize 把对象图编码为 format 格式的字节序列。
// 根类型未显式给出时按运行时值推断。
func (s *Serializer) Serialize(data any, format string, opts ...CallOption) ([]byte, error) {
	start := time.Now()

	out, depth, err := s.serialize(data, format, opts)
	s.observe(types.DirectionSerialization, format, start, depth, len(out), err)
	if err != nil {
		log.Warn("serialization failed", zap.String("format", format), zap.Error(err))
		return nil, err
	}

	log.Debug("serialization finished",
		zap.String("format", format),
		zap.Int("bytes", len(out)),
		zap.Duration("cost", time.Since(start)))
	return out, nil
}

func (s *Serializer) serialize(data any, format string, opts []CallOption) ([]byte, int, error) {
	co, err := evalCallOptions(opts)
	if err != nil {
		return nil, 0, err
	}
	visitor, err := s.serializationVisitor(format)
	if err != nil {
		return nil, 0, err
	}

	tree, depth, err := s.navigate(s.serNav, types.DirectionSerialization, format, visitor, data, co)
	if err != nil {
		return nil, depth, err
	}

	result, err := visitor.Result(tree)
	if err != nil {
		return nil, depth, err
	}
	out, err := documentBytes(format, result)
	return out, depth, err
}

// Deserialize 把 format 格式的字节序列还原为对象图。
// 根类型必须通过 WithType/WithTypeName 或上下文属性给出。
func (s *Serializer) Deserialize(data []byte, format string, opts ...CallOption) (any, error) {
	start := time.Now()

	result, depth, err := s.deserialize(data, format, opts)
	s.observe(types.DirectionDeserialization, format, start, depth, len(data), err)
	if err != nil {
		log.Warn("deserialization failed", zap.String("format", format), zap.Error(err))
		return nil, err
	}

	log.Debug("deserialization finished",
		zap.String("format", format),
		zap.Int("bytes", len(data)),
		zap.Duration("cost", time.Since(start)))
	return result, nil
}

func (s *Serializer) deserialize(data []byte, format string, opts []CallOption) (any, int, error) {
	co, err := evalCallOptions(opts)
	if err != nil {
		return nil, 0, err
	}
	visitor, err := s.deserializationVisitor(format)
	if err != nil {
		return nil, 0, err
	}

	result, depth, err := s.navigate(s.deserNav, types.DirectionDeserialization, format, visitor, data, co)
	if err != nil {
		return nil, depth, err
	}

	final, err := visitor.Result(result)
	return final, depth, err
}

// ToMap 把对象图序列化为 map 形式的文档树，跳过字节编码。
// 固定使用 json 访问器，根节点必须是对象。
func (s *Serializer) ToMap(data any, opts ...CallOption) (map[string]any, error) {
	co, err := evalCallOptions(opts)
	if err != nil {
		return nil, err
	}
	visitor, err := s.serializationVisitor(FormatJSON)
	if err != nil {
		return nil, err
	}

	tree, _, err := s.navigate(s.serNav, types.DirectionSerialization, FormatJSON, visitor, data, co)
	if err != nil {
		return nil, err
	}

	doc, ok := tree.(map[string]any)
	if !ok {
		return nil, serr.WrapErrValueInvalid("object document", tree)
	}
	return doc, nil
}

// FromMap 把 map 形式的文档树还原为对象图，固定使用 json 访问器。
func (s *Serializer) FromMap(doc map[string]any, opts ...CallOption) (any, error) {
	co, err := evalCallOptions(opts)
	if err != nil {
		return nil, err
	}
	visitor, err := s.deserializationVisitor(FormatJSON)
	if err != nil {
		return nil, err
	}

	result, _, err := s.navigate(s.deserNav, types.DirectionDeserialization, FormatJSON, visitor, doc, co)
	if err != nil {
		return nil, err
	}
	return visitor.Result(result)
}

// WarmUp 并发预编译各注册类的快路径计划，通常在进程启动时调用。
// 不传 classes 时预热全部注册类。
func (s *Serializer) WarmUp(classes ...string) error {
	if s.plans == nil {
		return nil
	}
	if len(classes) == 0 {
		classes = s.registry.Names()
	}

	pool := conc.NewDefaultPool[any]()
	defer pool.Release()

	futures := make([]*conc.Future[any], 0, len(classes))
	for _, class := range classes {
		name := class
		futures = append(futures, pool.Submit(func() (any, error) {
			cm, err := s.registry.MetadataFor(name)
			if err != nil {
				return nil, err
			}
			s.plans.For(cm)
			return nil, nil
		}))
	}
	if err := conc.AwaitAll(futures...); err != nil {
		return err
	}

	log.Info("fast-path plans warmed up", zap.Int("classes", len(classes)))
	return nil
}

// DeserializeAs 反序列化并断言结果类型。未显式指定根类型时，
// 按 T 在注册表里的逻辑名推断。
func DeserializeAs[T any](s *Serializer, data []byte, format string, opts ...CallOption) (T, error) {
	var zero T

	if rt := reflect.TypeOf(zero); rt != nil {
		for rt.Kind() == reflect.Pointer {
			rt = rt.Elem()
		}
		if name, ok := s.registry.NameFor(rt); ok {
			opts = append([]CallOption{WithTypeName(name)}, opts...)
		}
	}

	result, err := s.Deserialize(data, format, opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, serr.WrapErrValueInvalid(fmt.Sprintf("%T", zero), result)
	}
	return typed, nil
}

func (s *Serializer) serializationVisitor(format string) (graph.Visitor, error) {
	factory, ok := s.formats[format]
	if !ok {
		return nil, serr.WrapErrFormatUnsupported(format)
	}
	visitor := factory.NewSerializationVisitor()
	if visitor == nil {
		return nil, serr.WrapErrVisitorMissing(types.DirectionSerialization.String(), format)
	}
	return visitor, nil
}

func (s *Serializer) deserializationVisitor(format string) (graph.Visitor, error) {
	factory, ok := s.formats[format]
	if !ok {
		return nil, serr.WrapErrFormatUnsupported(format)
	}
	visitor := factory.NewDeserializationVisitor()
	if visitor == nil {
		return nil, serr.WrapErrVisitorMissing(types.DirectionDeserialization.String(), format)
	}
	return visitor, nil
}

// navigate 构建操作上下文并驱动一次完整遍历，返回遍历结果与
// 实际触达的最大深度。
func (s *Serializer) navigate(nav graph.Navigator, direction types.Direction, format string, visitor graph.Visitor, data any, co *callOptions) (any, int, error) {
	strategy, err := co.strategy()
	if err != nil {
		return nil, 0, err
	}

	serializeNulls := s.serializeNulls
	if co.serializeNulls != nil {
		serializeNulls = *co.serializeNulls
	}
	maxDepth := s.maxDepth
	if co.maxDepth > 0 {
		maxDepth = co.maxDepth
	}
	var plans *graph.PlanCache
	if direction == types.DirectionSerialization {
		plans = s.plans
	}

	ctx, err := graph.NewContext(graph.ContextOptions{
		Direction:      direction,
		Format:         format,
		Visitor:        visitor,
		Exclusion:      strategy,
		Namer:          s.registry,
		Attributes:     co.attributes,
		SerializeNulls: serializeNulls,
		MaxDepth:       maxDepth,
		Plans:          plans,
	})
	if err != nil {
		return nil, 0, err
	}
	ctx.BindNavigator(nav)

	t, err := s.resolveType(co)
	if err != nil {
		return nil, 0, err
	}

	prepared, err := visitor.Prepare(data)
	if err != nil {
		return nil, 0, err
	}

	result, err := nav.Accept(prepared, t, ctx)
	return result, ctx.MaxDepthSeen(), err
}

// resolveType 决定根类型：调用级选项优先，其次是上下文属性，
// 都未给出时返回 nil 交由导航器处理。
func (s *Serializer) resolveType(co *callOptions) (*types.Type, error) {
	if co.typ != nil {
		return co.typ, nil
	}
	if raw, ok := co.attributes[graph.InitialTypeAttribute]; ok {
		switch v := raw.(type) {
		case *types.Type:
			return v, nil
		case string:
			return types.Parse(v)
		}
	}
	return nil, nil
}

func documentBytes(format string, result any) ([]byte, error) {
	switch out := result.(type) {
	case []byte:
		return out, nil
	case string:
		return []byte(out), nil
	default:
		return nil, serr.WrapErrDocumentInvalid(format, errors.Newf("visitor produced %T instead of bytes", result))
	}
}

func (s *Serializer) observe(direction types.Direction, format string, start time.Time, depth, bytes int, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFail
	}
	metrics.OperationTotal.WithLabelValues(direction.String(), format, status).Inc()
	metrics.OperationLatency.WithLabelValues(direction.String(), format).Observe(float64(time.Since(start).Microseconds()))
	if err == nil {
		metrics.GraphDepth.WithLabelValues(direction.String()).Observe(float64(depth))
		if bytes > 0 {
			metrics.DocumentBytes.WithLabelValues(direction.String(), format).Observe(float64(bytes))
		}
	}
}
