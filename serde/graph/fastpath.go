package graph

import (
	"github.com/lk2023060901/serde-garden-go/pkg/metrics"
	"github.com/lk2023060901/serde-garden-go/pkg/util/typeutil"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// Plan 是一个类的预编译属性分派表。
//
// 说明：
//   - 仅收录声明为固定原始类别的属性，访问器可据此直接产出值，
//     不再回到导航器做逐节点分派；
//   - 纯吞吐优化，排除判断与空值语义与通用路径完全一致；
//   - 未收录的属性照常走通用分派。
type Plan struct {
	primitives map[*metadata.PropertyMetadata]types.Kind
}

// Primitive 返回属性预编译出的原始类别，未收录时第二个返回值为 false。
func (p *Plan) Primitive(pm *metadata.PropertyMetadata) (types.Kind, bool) {
	kind, ok := p.primitives[pm]
	return kind, ok
}

// Steps 返回可直接产出的属性数量。
func (p *Plan) Steps() int {
	return len(p.primitives)
}

// PlanCache 按类名缓存分派表，可跨并发的顶层调用共享。
type PlanCache struct {
	plans *typeutil.ConcurrentMap[string, *Plan]
}

// NewPlanCache 创建空的分派表缓存。
func NewPlanCache() *PlanCache {
	return &PlanCache{plans: typeutil.NewConcurrentMap[string, *Plan]()}
}

// For 返回类的分派表，首次访问时编译并缓存。
// 使用表达式排除的类不可预编译，返回 nil。
func (c *PlanCache) For(cm *metadata.ClassMetadata) *Plan {
	if c == nil || cm == nil || cm.UsesExpression {
		return nil
	}
	if plan, ok := c.plans.Get(cm.Name); ok {
		return plan
	}

	plan, loaded := c.plans.GetOrInsert(cm.Name, compilePlan(cm))
	if !loaded {
		metrics.FastPathCompilations.Inc()
	}
	return plan
}

// compilePlan 从类元数据编译分派表。
func compilePlan(cm *metadata.ClassMetadata) *Plan {
	primitives := make(map[*metadata.PropertyMetadata]types.Kind, len(cm.Properties))
	for _, pm := range cm.Properties {
		if pm.Type == nil {
			continue
		}
		switch kind := pm.Type.Kind(); kind {
		case types.KindString, types.KindInt, types.KindBool, types.KindFloat:
			primitives[pm] = kind
		}
	}
	return &Plan{primitives: primitives}
}
