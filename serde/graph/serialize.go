package graph

import (
	"fmt"
	"reflect"

	"github.com/lk2023060901/serde-garden-go/pkg/metrics"
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/event"
	"github.com/lk2023060901/serde-garden-go/serde/exclusion"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// SerializationNavigatorOptions 用于构造序列化导航器。
type SerializationNavigatorOptions struct {
	// Provider 解析类元数据，必填。
	Provider metadata.Provider
	// Handlers 为自定义处理器注册表，缺省为空表。
	Handlers *HandlerRegistry
	// Dispatcher 为事件分发器，缺省为空实现。
	Dispatcher event.Dispatcher
	// Expression 为表达式排除策略，未配置求值器时为 nil。
	Expression *exclusion.Expression
}

// SerializationNavigator 将内存对象图向外遍历到访问器。
//
// 说明：
//   - 导航器本身无状态，可跨顶层调用复用；
//   - 单次调用的可变状态全部在 Context 中。
type SerializationNavigator struct {
	provider   metadata.Provider
	handlers   *HandlerRegistry
	dispatcher event.Dispatcher
	expression *exclusion.Expression
}

// 编译期断言：确保 SerializationNavigator 实现了 Navigator 接口。
var _ Navigator = (*SerializationNavigator)(nil)

// NewSerializationNavigator 创建序列化导航器。
func NewSerializationNavigator(opts SerializationNavigatorOptions) (*SerializationNavigator, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("graph: metadata provider is nil")
	}
	if opts.Handlers == nil {
		opts.Handlers = NewHandlerRegistry()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = event.NewNopDispatcher()
	}

	return &SerializationNavigator{
		provider:   opts.Provider,
		handlers:   opts.Handlers,
		dispatcher: opts.Dispatcher,
		expression: opts.Expression,
	}, nil
}

// Accept 遍历一个节点，返回访问器为该节点产出的结果。
func (n *SerializationNavigator) Accept(data any, t *types.Type, ctx *Context) (any, error) {
	// 1. 类型缺省时按运行时值推断；空数据无条件强制为 null 类型，
	//    保证 null 不会被静默转换成其它类型。
	if t == nil {
		t = types.Infer(data, ctx.TypeNamer())
	}
	if data == nil {
		t = types.Null()
	}

	// 2. 访问器的自定义空值判定后于第 1 步执行，优先于声明与推断的类型。
	if nc, ok := ctx.Visitor().(NullChecker); ok && nc.IsNull(data) {
		t = types.Null()
	}

	// 3. 原始类别直接分派到访问器的固定方法，不涉及元数据。
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
		// 4. 资源类别无法被表示，直接报配置错误。
		return nil, serr.WrapErrResourceNotSupported(t.String(), ctx.Path())
	default:
		return n.acceptObject(data, t, ctx)
	}
}

// acceptObject 处理对象图节点。
func (n *SerializationNavigator) acceptObject(data any, t *types.Type, ctx *Context) (any, error) {
	// a. 循环防护：正在访问的节点以 null 断开，属刻意行为而非失败。
	ref, trackable := refOf(data)
	if trackable && ctx.isVisiting(ref) {
		return nil, nil
	}

	result, cm, finalType, visited, err := n.visitObject(data, t, ctx, ref, trackable)
	if err != nil || !visited {
		return result, err
	}

	// k. 节点收尾回调与事件在解除访问标记、弹出元数据帧之后执行。
	for _, fn := range cm.PostSerialize {
		if err := fn(data); err != nil {
			return nil, err
		}
	}
	if n.dispatcher.HasListeners(event.PostSerializeName, finalType.Name, ctx.Format()) {
		ev := &event.PostSerializeEvent{Type: finalType, Data: data}
		if err := n.dispatcher.Dispatch(event.PostSerializeName, finalType.Name, ctx.Format(), ev); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// visitObject 执行对象节点的主体流程。
//
// 返回 visited 为 true 表示完整走完了属性访问，调用方需补发收尾回调；
// 处理器命中与类级排除跳过时 visited 为 false。
// 访问标记、深度与元数据帧在本函数返回前全部释放，包括错误路径。
func (n *SerializationNavigator) visitObject(data any, t *types.Type, ctx *Context, ref visitRef, trackable bool) (result any, cm *metadata.ClassMetadata, finalType *types.Type, visited bool, err error) {
	// b. 标记当前节点，所有退出路径统一由 defer 解除。
	if trackable {
		ctx.startVisiting(ref)
		defer ctx.stopVisiting(ref)
	}

	if err = ctx.increaseDepth(); err != nil {
		return nil, nil, nil, false, err
	}
	defer ctx.decreaseDepth()

	// c. 多态收窄：运行时具体类型是声明类型的子类型时，改用具体类型的元数据。
	t = n.narrowType(data, t, ctx)

	// d. pre_serialize 事件先于处理器查找与元数据加载，监听者可改写类型。
	if n.dispatcher.HasListeners(event.PreSerializeName, t.Name, ctx.Format()) {
		ev := &event.PreSerializeEvent{Type: t, Data: data}
		if err = n.dispatcher.Dispatch(event.PreSerializeName, t.Name, ctx.Format(), ev); err != nil {
			return nil, nil, nil, false, err
		}
		if ev.Type != nil {
			t = ev.Type
		}
	}

	// e. 自定义处理器完全替代元数据遍历，结果直接返回。
	if fn, ok := n.handlers.Get(types.DirectionSerialization, t.Name, ctx.Format()); ok {
		metrics.HandlerInvocations.WithLabelValues(types.DirectionSerialization.String(), ctx.Format()).Inc()
		result, err = fn(ctx.Visitor(), data, t, ctx)
		return result, nil, t, false, err
	}

	// f. 加载元数据；声明使用表达式排除但未配置求值器属配置错误。
	if cm, err = n.provider.MetadataFor(t.Name); err != nil {
		return nil, nil, nil, false, err
	}
	if cm.UsesExpression && n.expression == nil {
		return nil, nil, nil, false, serr.WrapErrExpressionEvaluatorRequired(cm.Name)
	}

	// g. 类级排除：软跳过，返回 null。表达式排除不参与类级判断。
	var skip bool
	if skip, err = ctx.Exclusion().ShouldSkipClass(cm, ctx); err != nil {
		return nil, nil, nil, false, err
	}
	if skip {
		return nil, nil, nil, false, nil
	}

	// h. 压入类元数据帧，供路径报告与嵌套分派使用。
	ctx.pushClass(cm)
	defer ctx.popClass()

	// i. 序列化前回调。
	for _, fn := range cm.PreSerialize {
		if err = fn(data); err != nil {
			return nil, nil, nil, false, err
		}
	}

	ctx.pushObject(data)
	defer ctx.popObject()

	// j. 按声明顺序访问属性，排除策略与表达式排除逐个把关。
	if err = ctx.Visitor().StartObject(cm, data, t, ctx); err != nil {
		return nil, nil, nil, false, err
	}
	for _, pm := range cm.Properties {
		if skip, err = shouldSkipProperty(n.expression, pm, ctx); err != nil {
			return nil, nil, nil, false, err
		}
		if skip {
			continue
		}

		ctx.pushProperty(pm)
		err = ctx.Visitor().VisitProperty(pm, data, ctx)
		ctx.popProperty()
		if err != nil {
			return nil, nil, nil, false, err
		}
	}
	if result, err = ctx.Visitor().EndObject(cm, data, t, ctx); err != nil {
		return nil, nil, nil, false, err
	}
	return result, cm, t, true, nil
}

// shouldSkipProperty 依次询问组合排除策略与表达式排除策略。
// 表达式排除仅作用于属性级，类级判断从不经过它。
func shouldSkipProperty(expr *exclusion.Expression, pm *metadata.PropertyMetadata, ctx *Context) (bool, error) {
	skip, err := ctx.Exclusion().ShouldSkipProperty(pm, ctx)
	if err != nil || skip {
		return skip, err
	}
	if expr != nil {
		return expr.ShouldSkipProperty(pm, ctx)
	}
	return false, nil
}

// narrowType 将声明类型收窄为运行时具体类型。
//
// 行为：
//   - 运行时具体类型已注册且不同于声明类型，并且确为声明类型的
//     子类型（实现声明的接口，或匿名嵌入声明的结构体）时，
//     以具体类型名构造新类型，泛型参数清空；
//   - 其余情况保持声明类型不变。
func (n *SerializationNavigator) narrowType(data any, t *types.Type, ctx *Context) *types.Type {
	namer := ctx.TypeNamer()
	if namer == nil || data == nil {
		return t
	}

	rt := reflect.TypeOf(data)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return t
	}

	concrete, ok := namer.NameFor(rt)
	if !ok || concrete == t.Name {
		return t
	}
	if !n.isSubtype(rt, t.Name) {
		return t
	}
	return types.Named(concrete)
}

// isSubtype 报告 rt 是否为声明类型的严格子类型。
func (n *SerializationNavigator) isSubtype(rt reflect.Type, declared string) bool {
	cm, err := n.provider.MetadataFor(declared)
	if err != nil || cm.GoType == nil {
		return false
	}

	base := cm.GoType
	if base.Kind() == reflect.Interface {
		return rt.Implements(base) || reflect.PointerTo(rt).Implements(base)
	}
	return embedsStruct(rt, base)
}

// embedsStruct 报告 rt 是否直接或间接匿名嵌入 base。
func embedsStruct(rt, base reflect.Type) bool {
	if rt.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.Anonymous {
			continue
		}
		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft == base || embedsStruct(ft, base) {
			return true
		}
	}
	return false
}
