// Package graph 实现对象图遍历引擎：上下文、导航器、访问器与处理器契约。
//
// 设计目标：
//   - 导航器是唯一的递归入口，访问器在需要嵌套值时回调导航器，而不是平铺循环；
//   - 上下文为单次遍历私有，承载方向、深度、循环防护与路径帧；
//   - 格式细节（编码、取值、赋值）全部留在访问器，引擎只负责遍历顺序与分派策略。
package graph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/pkg/util/typeutil"
	"github.com/lk2023060901/serde-garden-go/serde/exclusion"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// InitialTypeAttribute 为上下文属性包中指定根节点类型的键名。
const InitialTypeAttribute = "initial_type"

// DefaultMaxDepth 为默认的对象图深度上限。
// 超过上限立即报错，而不是静默截断。
const DefaultMaxDepth = 64

// visitRef 以指针身份标识正在访问的节点。
// 值语义的数据不可追踪，也不可能构成循环。
type visitRef struct {
	ptr uintptr
	typ reflect.Type
}

// refOf 计算节点的身份引用；不可追踪时 ok 为 false。
func refOf(data any) (visitRef, bool) {
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return visitRef{}, false
		}
		return visitRef{ptr: v.Pointer(), typ: v.Type()}, true
	default:
		return visitRef{}, false
	}
}

// ContextOptions 用于构造遍历上下文。
type ContextOptions struct {
	// Direction 为操作方向。
	Direction types.Direction
	// Format 为格式名，例如 "json"。
	Format string
	// Visitor 为格式访问器，必填。
	Visitor Visitor
	// Exclusion 为排除策略，缺省为永不跳过。
	Exclusion exclusion.Strategy
	// Namer 将 Go 类型解析为逻辑类型名，可为 nil。
	Namer types.TypeNamer
	// Attributes 为初始属性包，可为 nil。
	Attributes map[string]any
	// SerializeNulls 表示空值属性是否写入输出。
	SerializeNulls bool
	// MaxDepth 为对象图深度上限，0 表示使用 DefaultMaxDepth。
	MaxDepth int
	// Plans 为序列化快路径计划缓存，nil 表示关闭快路径。
	Plans *PlanCache
}

// Context 承载单次遍历的全部可变状态。
//
// 要求：
//   - 单个 Context 只服务一次顶层调用，调用间不得复用；
//   - 深度增减必须严格配对，包括所有提前返回与错误路径；
//   - 循环防护集合在节点子树结束后必须立即解除标记，
//     否则共享同一引用的后续兄弟节点会被误判为循环。
type Context struct {
	direction      types.Direction
	format         string
	visitor        Visitor
	navigator      Navigator
	exclusion      exclusion.Strategy
	namer          types.TypeNamer
	attributes     map[string]any
	serializeNulls bool
	maxDepth       int
	plans          *PlanCache

	depth    int
	maxSeen  int
	visiting typeutil.Set[visitRef]

	classStack  []*metadata.ClassMetadata
	propStack   []*metadata.PropertyMetadata
	objectStack []any
}

// 编译期断言：确保 Context 实现了排除策略可见的上下文视图。
var _ exclusion.NavigatorContext = (*Context)(nil)

// NewContext 创建一次遍历的上下文。
func NewContext(opts ContextOptions) (*Context, error) {
	if opts.Visitor == nil {
		return nil, fmt.Errorf("graph: visitor is nil")
	}
	if opts.Exclusion == nil {
		opts.Exclusion = exclusion.NewNop()
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Attributes == nil {
		opts.Attributes = make(map[string]any)
	}

	return &Context{
		direction:      opts.Direction,
		format:         opts.Format,
		visitor:        opts.Visitor,
		exclusion:      opts.Exclusion,
		namer:          opts.Namer,
		attributes:     opts.Attributes,
		serializeNulls: opts.SerializeNulls,
		maxDepth:       opts.MaxDepth,
		plans:          opts.Plans,
		visiting:       typeutil.NewSet[visitRef](),
	}, nil
}

// BindNavigator 绑定本次遍历使用的导航器。
// 访问器通过 Navigator() 回调导航器处理嵌套值。
func (c *Context) BindNavigator(nav Navigator) {
	c.navigator = nav
}

// Direction 返回操作方向。
func (c *Context) Direction() types.Direction {
	return c.direction
}

// Format 返回格式名。
func (c *Context) Format() string {
	return c.format
}

// Visitor 返回本次遍历的格式访问器。
func (c *Context) Visitor() Visitor {
	return c.visitor
}

// Navigator 返回本次遍历的导航器。
func (c *Context) Navigator() Navigator {
	return c.navigator
}

// Exclusion 返回激活的排除策略。
func (c *Context) Exclusion() exclusion.Strategy {
	return c.exclusion
}

// TypeNamer 返回逻辑类型名解析器，可能为 nil。
func (c *Context) TypeNamer() types.TypeNamer {
	return c.namer
}

// Plans 返回快路径计划缓存，关闭快路径时为 nil。
func (c *Context) Plans() *PlanCache {
	return c.plans
}

// ShouldSerializeNulls 报告空值属性是否写入输出。
func (c *Context) ShouldSerializeNulls() bool {
	return c.serializeNulls
}

// Depth 返回当前对象图深度。
func (c *Context) Depth() int {
	return c.depth
}

// MaxDepthSeen 返回本次遍历达到过的最大深度。
func (c *Context) MaxDepthSeen() int {
	return c.maxSeen
}

// VisitingCount 返回循环防护集合的当前大小。
// 顶层调用返回后必须为 0。
func (c *Context) VisitingCount() int {
	return c.visiting.Len()
}

// Attribute 读取属性包中的值。
func (c *Context) Attribute(key string) (any, bool) {
	v, ok := c.attributes[key]
	return v, ok
}

// SetAttribute 写入属性包。
func (c *Context) SetAttribute(key string, value any) {
	c.attributes[key] = value
}

// Path 返回当前属性路径，例如 $.Orders.Total，用于错误与日志。
func (c *Context) Path() string {
	if len(c.propStack) == 0 {
		return "$"
	}

	var sb strings.Builder
	sb.WriteByte('$')
	for _, pm := range c.propStack {
		sb.WriteByte('.')
		sb.WriteString(pm.Name)
	}
	return sb.String()
}

// CurrentClass 返回栈顶的类元数据帧；空栈为 nil。
func (c *Context) CurrentClass() *metadata.ClassMetadata {
	if len(c.classStack) == 0 {
		return nil
	}
	return c.classStack[len(c.classStack)-1]
}

// CurrentProperty 返回栈顶的属性元数据帧；空栈为 nil。
func (c *Context) CurrentProperty() *metadata.PropertyMetadata {
	if len(c.propStack) == 0 {
		return nil
	}
	return c.propStack[len(c.propStack)-1]
}

// CurrentObject 返回正在访问属性的对象。
// 仅序列化方向有值，反序列化方向与根节点外为 nil。
func (c *Context) CurrentObject() any {
	if len(c.objectStack) == 0 {
		return nil
	}
	return c.objectStack[len(c.objectStack)-1]
}

func (c *Context) isVisiting(ref visitRef) bool {
	return c.visiting.Contain(ref)
}

func (c *Context) startVisiting(ref visitRef) {
	c.visiting.Insert(ref)
}

func (c *Context) stopVisiting(ref visitRef) {
	c.visiting.Remove(ref)
}

// increaseDepth 进入一个非原始节点。
// 已达深度上限时不增加计数直接报错，保证增减始终配对。
func (c *Context) increaseDepth() error {
	if c.maxDepth > 0 && c.depth >= c.maxDepth {
		return serr.WrapErrDepthLimitExceeded(c.maxDepth, c.Path())
	}
	c.depth++
	if c.depth > c.maxSeen {
		c.maxSeen = c.depth
	}
	return nil
}

// decreaseDepth 离开一个非原始节点，与 increaseDepth 严格配对。
func (c *Context) decreaseDepth() {
	c.depth--
}

func (c *Context) pushClass(cm *metadata.ClassMetadata) {
	c.classStack = append(c.classStack, cm)
}

func (c *Context) popClass() {
	c.classStack = c.classStack[:len(c.classStack)-1]
}

func (c *Context) pushProperty(pm *metadata.PropertyMetadata) {
	c.propStack = append(c.propStack, pm)
}

func (c *Context) popProperty() {
	c.propStack = c.propStack[:len(c.propStack)-1]
}

func (c *Context) pushObject(obj any) {
	c.objectStack = append(c.objectStack, obj)
}

func (c *Context) popObject() {
	c.objectStack = c.objectStack[:len(c.objectStack)-1]
}
