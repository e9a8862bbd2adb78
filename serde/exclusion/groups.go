package exclusion

import (
	"github.com/samber/lo"

	"github.com/lk2023060901/serde-garden-go/serde/metadata"
)

// DefaultGroup 为未声明分组的属性所属的隐式分组。
const DefaultGroup = "Default"

// Groups 按分组排除属性：属性的分组与激活分组无交集时跳过。
//
// 行为：
//   - 未声明分组的属性归入 DefaultGroup；
//   - 类级别恒不跳过。
type Groups struct {
	active []string
}

// 编译期断言：确保 Groups 实现了 Strategy 接口。
var _ Strategy = (*Groups)(nil)

// NewGroups 创建分组排除策略。
// groups 为空时仅激活 DefaultGroup。
func NewGroups(groups ...string) *Groups {
	if len(groups) == 0 {
		groups = []string{DefaultGroup}
	}
	return &Groups{active: groups}
}

func (g *Groups) ShouldSkipClass(*metadata.ClassMetadata, NavigatorContext) (bool, error) {
	return false, nil
}

func (g *Groups) ShouldSkipProperty(prop *metadata.PropertyMetadata, _ NavigatorContext) (bool, error) {
	if len(prop.Groups) == 0 {
		return !lo.Contains(g.active, DefaultGroup), nil
	}
	return !lo.Some(g.active, prop.Groups), nil
}
