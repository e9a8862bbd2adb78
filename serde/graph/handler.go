package graph

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// HandlerFunc 为自定义类型处理器。
// 命中处理器的节点完全绕过元数据驱动的遍历，返回值即该节点的结果。
type HandlerFunc func(v Visitor, data any, t *types.Type, ctx *Context) (any, error)

type handlerKey struct {
	direction types.Direction
	typeName  string
	format    string
}

// HandlerRegistry 按（方向、类型名、格式）维护自定义处理器。
//
// 说明：
//   - 注册阶段完成后查询是并发安全的只读操作；
//   - 同一键重复注册视为配置错误。
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[handlerKey]HandlerFunc
}

// NewHandlerRegistry 创建空的处理器注册表。
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[handlerKey]HandlerFunc),
	}
}

// Register 注册一个处理器。
func (r *HandlerRegistry) Register(direction types.Direction, typeName, format string, fn HandlerFunc) error {
	key := handlerKey{direction: direction, typeName: typeName, format: format}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[key]; ok {
		return serr.WrapErrHandlerDuplicate(direction.String(), typeName, format)
	}
	r.handlers[key] = fn
	return nil
}

// Get 查找处理器；未注册时 ok 为 false。
func (r *HandlerRegistry) Get(direction types.Direction, typeName, format string) (HandlerFunc, bool) {
	key := handlerKey{direction: direction, typeName: typeName, format: format}

	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[key]
	return fn, ok
}

// TypeNames 返回注册过处理器的类型名，去重后按字典序排列。
func (r *HandlerRegistry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{}, len(r.handlers))
	for key := range r.handlers {
		set[key.typeName] = struct{}{}
	}
	names := maps.Keys(set)
	sort.Strings(names)
	return names
}
