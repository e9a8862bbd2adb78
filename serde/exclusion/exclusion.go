// Package exclusion 定义类与属性级别的排除策略。
//
// 设计目标：
//   - 策略只回答"是否跳过"，不关心跳过后的行为；
//   - 多个策略可按逻辑或（Disjunction）或逻辑与（Conjunction）组合；
//   - 表达式排除是独立策略，仅作用于属性级别，类级别恒不跳过，
//     该不对称性与引擎的配置校验行为配套，刻意保留。
package exclusion

import (
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// NavigatorContext 为策略可见的遍历上下文视图。
// 完整上下文由遍历引擎持有，策略只依赖这里列出的只读能力。
type NavigatorContext interface {
	// Direction 返回当前操作方向。
	Direction() types.Direction
	// Depth 返回当前对象图深度。
	Depth() int
	// Path 返回当前属性路径，用于错误与日志。
	Path() string
	// CurrentObject 返回正在访问的对象；反序列化或根节点外为 nil。
	CurrentObject() any
	// Attribute 读取上下文属性包中的值。
	Attribute(key string) (any, bool)
}

// Strategy 决定类与属性是否跳过。
type Strategy interface {
	// ShouldSkipClass 报告是否整体跳过一个类节点。
	ShouldSkipClass(class *metadata.ClassMetadata, ctx NavigatorContext) (bool, error)
	// ShouldSkipProperty 报告是否跳过一个属性。
	ShouldSkipProperty(prop *metadata.PropertyMetadata, ctx NavigatorContext) (bool, error)
}

// Nop 为永不跳过的空策略。
type Nop struct{}

// 编译期断言：确保各策略实现了 Strategy 接口。
var (
	_ Strategy = Nop{}
	_ Strategy = (*Disjunction)(nil)
	_ Strategy = (*Conjunction)(nil)
)

// NewNop 创建空策略。
func NewNop() Nop {
	return Nop{}
}

func (Nop) ShouldSkipClass(*metadata.ClassMetadata, NavigatorContext) (bool, error) {
	return false, nil
}

func (Nop) ShouldSkipProperty(*metadata.PropertyMetadata, NavigatorContext) (bool, error) {
	return false, nil
}

// Disjunction 按逻辑或组合多个策略：任一策略要求跳过即跳过。
type Disjunction struct {
	delegates []Strategy
}

// NewDisjunction 创建逻辑或组合策略。无子策略时永不跳过。
func NewDisjunction(delegates ...Strategy) *Disjunction {
	return &Disjunction{delegates: delegates}
}

func (d *Disjunction) ShouldSkipClass(class *metadata.ClassMetadata, ctx NavigatorContext) (bool, error) {
	for _, s := range d.delegates {
		skip, err := s.ShouldSkipClass(class, ctx)
		if err != nil {
			return false, err
		}
		if skip {
			return true, nil
		}
	}
	return false, nil
}

func (d *Disjunction) ShouldSkipProperty(prop *metadata.PropertyMetadata, ctx NavigatorContext) (bool, error) {
	for _, s := range d.delegates {
		skip, err := s.ShouldSkipProperty(prop, ctx)
		if err != nil {
			return false, err
		}
		if skip {
			return true, nil
		}
	}
	return false, nil
}

// Conjunction 按逻辑与组合多个策略：所有策略一致要求跳过才跳过。
type Conjunction struct {
	delegates []Strategy
}

// NewConjunction 创建逻辑与组合策略。无子策略时永不跳过。
func NewConjunction(delegates ...Strategy) *Conjunction {
	return &Conjunction{delegates: delegates}
}

func (c *Conjunction) ShouldSkipClass(class *metadata.ClassMetadata, ctx NavigatorContext) (bool, error) {
	if len(c.delegates) == 0 {
		return false, nil
	}
	for _, s := range c.delegates {
		skip, err := s.ShouldSkipClass(class, ctx)
		if err != nil {
			return false, err
		}
		if !skip {
			return false, nil
		}
	}
	return true, nil
}

func (c *Conjunction) ShouldSkipProperty(prop *metadata.PropertyMetadata, ctx NavigatorContext) (bool, error) {
	if len(c.delegates) == 0 {
		return false, nil
	}
	for _, s := range c.delegates {
		skip, err := s.ShouldSkipProperty(prop, ctx)
		if err != nil {
			return false, err
		}
		if !skip {
			return false, nil
		}
	}
	return true, nil
}
