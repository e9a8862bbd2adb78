package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/exp/maps"

	"github.com/lk2023060901/serde-garden-go/pkg/metrics"
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/event"
	"github.com/lk2023060901/serde-garden-go/serde/exclusion"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// DeserializationNavigatorOptions 用于构造反序列化导航器。
type DeserializationNavigatorOptions struct {
	// Provider 解析类元数据，必填。
	Provider metadata.Provider
	// Constructor 负责实例化目标对象，必填。
	Constructor ObjectConstructor
	// Handlers 为自定义处理器注册表，缺省为空表。
	Handlers *HandlerRegistry
	// Dispatcher 为事件分发器，缺省为空实现。
	Dispatcher event.Dispatcher
	// Expression 为表达式排除策略，未配置求值器时为 nil。
	Expression *exclusion.Expression
}

// DeserializationNavigator 将输入文档向内遍历，经对象构造器重建对象图。
//
// 行为：
//   - 与序列化方向的差异：类型必填、无循环防护、判别器解析取代多态收窄、
//     只读属性不写入；
//   - 输入文档默认无环，深度上限仍然生效。
type DeserializationNavigator struct {
	provider    metadata.Provider
	constructor ObjectConstructor
	handlers    *HandlerRegistry
	dispatcher  event.Dispatcher
	expression  *exclusion.Expression
}

// 编译期断言：确保 DeserializationNavigator 实现了 Navigator 接口。
var _ Navigator = (*DeserializationNavigator)(nil)

// NewDeserializationNavigator 创建反序列化导航器。
func NewDeserializationNavigator(opts DeserializationNavigatorOptions) (*DeserializationNavigator, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("graph: metadata provider is nil")
	}
	if opts.Constructor == nil {
		return nil, fmt.Errorf("graph: object constructor is nil")
	}
	if opts.Handlers == nil {
		opts.Handlers = NewHandlerRegistry()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = event.NewNopDispatcher()
	}

	return &DeserializationNavigator{
		provider:    opts.Provider,
		constructor: opts.Constructor,
		handlers:    opts.Handlers,
		dispatcher:  opts.Dispatcher,
		expression:  opts.Expression,
	}, nil
}

// Accept 遍历一个文档节点，返回重建出的值。
func (n *DeserializationNavigator) Accept(data any, t *types.Type, ctx *Context) (any, error) {
	// 1. 无类型输入不可推断，缺省类型属配置错误。
	if t == nil {
		return nil, serr.WrapErrTypeRequired()
	}

	// 2. 字面空值与访问器自定义空值判定一律覆盖声明类型。
	if data == nil {
		t = types.Null()
	}
	if nc, ok := ctx.Visitor().(NullChecker); ok && nc.IsNull(data) {
		t = types.Null()
	}

	// 3. 原始类别直接分派，与序列化方向一致。
	switch t.Kind() {
	case types.KindNull:
		return ctx.Visitor().VisitNil(t, ctx)
	case types.KindString:
		return ctx.Visitor().VisitString(data, t, ctx)
	case types.KindBool:
		return ctx.Visitor().VisitBool(data, t, ctx)
	case types.KindInt:
		return ctx.Visitor().VisitInt(data, t, ctx)
	case types.KindFloat:
		return ctx.Visitor().VisitFloat(data, t, ctx)
	case types.KindArray:
		return ctx.Visitor().VisitArray(data, t, ctx)
	case types.KindResource:
		return nil, serr.WrapErrResourceNotSupported(t.String(), ctx.Path())
	default:
		return n.acceptObject(data, t, ctx)
	}
}

// acceptObject 处理对象文档节点。
func (n *DeserializationNavigator) acceptObject(data any, t *types.Type, ctx *Context) (any, error) {
	result, cm, visited, err := n.visitObject(data, t, ctx)
	if err != nil || !visited {
		return result, err
	}

	// 节点收尾回调与事件作用于重建出的结果对象，在元数据帧弹出之后执行。
	for _, fn := range cm.PostDeserialize {
		if err := fn(result); err != nil {
			return nil, err
		}
	}
	if n.dispatcher.HasListeners(event.PostDeserializeName, cm.Name, ctx.Format()) {
		ev := &event.PostDeserializeEvent{Type: t, Object: result}
		if err := n.dispatcher.Dispatch(event.PostDeserializeName, cm.Name, ctx.Format(), ev); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// visitObject 执行对象文档节点的主体流程。
//
// 返回 visited 为 true 表示完整走完了属性回填，调用方需补发收尾回调；
// 处理器命中与类级排除跳过时 visited 为 false。
func (n *DeserializationNavigator) visitObject(data any, t *types.Type, ctx *Context) (result any, cm *metadata.ClassMetadata, visited bool, err error) {
	if err = ctx.increaseDepth(); err != nil {
		return nil, nil, false, err
	}
	defer ctx.decreaseDepth()

	// pre_deserialize 事件先于处理器查找与元数据加载，监听者可同时改写类型与数据。
	if n.dispatcher.HasListeners(event.PreDeserializeName, t.Name, ctx.Format()) {
		ev := &event.PreDeserializeEvent{Type: t, Data: data}
		if err = n.dispatcher.Dispatch(event.PreDeserializeName, t.Name, ctx.Format(), ev); err != nil {
			return nil, nil, false, err
		}
		if ev.Type != nil {
			t = ev.Type
		}
		data = ev.Data
	}

	// 自定义处理器完全替代元数据遍历，结果直接返回。
	if fn, ok := n.handlers.Get(types.DirectionDeserialization, t.Name, ctx.Format()); ok {
		metrics.HandlerInvocations.WithLabelValues(types.DirectionDeserialization.String(), ctx.Format()).Inc()
		result, err = fn(ctx.Visitor(), data, t, ctx)
		return result, nil, false, err
	}

	if cm, err = n.provider.MetadataFor(t.Name); err != nil {
		return nil, nil, false, err
	}
	if cm.UsesExpression && n.expression == nil {
		return nil, nil, false, serr.WrapErrExpressionEvaluatorRequired(cm.Name)
	}

	// 判别器解析：声明类型即判别器基类时，由输入数据决定具体类的元数据。
	// 声明类型描述符保持不变，后续遍历使用解析出的元数据。
	if disc := cm.Discriminator; disc != nil && len(disc.Map) > 0 && t.Name == disc.BaseClass {
		if cm, err = n.resolveMetadata(cm, data); err != nil {
			return nil, nil, false, err
		}
		if cm.UsesExpression && n.expression == nil {
			return nil, nil, false, serr.WrapErrExpressionEvaluatorRequired(cm.Name)
		}
	}

	// 类级排除：软跳过，返回 null。
	var skip bool
	if skip, err = ctx.Exclusion().ShouldSkipClass(cm, ctx); err != nil {
		return nil, nil, false, err
	}
	if skip {
		return nil, nil, false, nil
	}

	ctx.pushClass(cm)
	defer ctx.popClass()

	// 实例化策略完全由对象构造器决定：新建、复用或替换均可。
	obj, err := n.constructor.Construct(ctx.Visitor(), cm, data, t, ctx)
	if err != nil {
		return nil, nil, false, err
	}
	if obj == nil {
		return nil, nil, false, serr.WrapErrConstructorMissing(cm.Name)
	}

	// 属性回填：排除策略、表达式排除、只读标记依次把关。
	if err = ctx.Visitor().StartObject(cm, obj, t, ctx); err != nil {
		return nil, nil, false, err
	}
	for _, pm := range cm.Properties {
		if skip, err = shouldSkipProperty(n.expression, pm, ctx); err != nil {
			return nil, nil, false, err
		}
		if skip || pm.ReadOnly {
			continue
		}

		ctx.pushProperty(pm)
		err = ctx.Visitor().VisitProperty(pm, data, ctx)
		ctx.popProperty()
		if err != nil {
			return nil, nil, false, err
		}
	}
	if result, err = ctx.Visitor().EndObject(cm, data, t, ctx); err != nil {
		return nil, nil, false, err
	}
	return result, cm, true, nil
}

// resolveMetadata 依据判别器字段从输入数据解析具体类的元数据。
//
// 查找顺序（先命中者生效）：
//  1. 普通键值结构中的判别器字段；
//  2. 文档节点的同名属性（AsAttribute 配置时）；
//  3. 配置了命名空间时的命名空间子节点；
//  4. 文档节点的普通子节点。
//
// 字段缺失与取值未映射均为数据错误。
func (n *DeserializationNavigator) resolveMetadata(cm *metadata.ClassMetadata, data any) (*metadata.ClassMetadata, error) {
	disc := cm.Discriminator

	raw, ok := discriminatorValue(disc, data)
	if !ok {
		return nil, serr.WrapErrDiscriminatorMissing(cm.Name, disc.FieldName)
	}

	got := discriminantString(raw)
	class, ok := disc.Map[got]
	if !ok {
		available := maps.Keys(disc.Map)
		sort.Strings(available)
		return nil, serr.WrapErrDiscriminatorUnmapped(cm.Name, got, available)
	}
	return n.provider.MetadataFor(class)
}

// discriminatorValue 从输入数据中取出判别器字段的原始值。
// 属性与命名空间查找未命中时回退到普通子节点。
func discriminatorValue(disc *metadata.Discriminator, data any) (any, bool) {
	switch doc := data.(type) {
	case map[string]any:
		v, ok := doc[disc.FieldName]
		return v, ok
	case Node:
		if disc.AsAttribute {
			if v, ok := doc.Attribute(disc.FieldName); ok {
				return v, true
			}
		}
		if !disc.AsAttribute && disc.Namespace != "" {
			if v, ok := doc.NamespacedChild(disc.Namespace, disc.FieldName); ok {
				return v, true
			}
		}
		return doc.Child(disc.FieldName)
	default:
		return nil, false
	}
}

// discriminantString 将判别器取值统一转成字符串后再查映射表。
func discriminantString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
