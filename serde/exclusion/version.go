package exclusion

import (
	"github.com/blang/semver/v4"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
)

// Version 按语义化版本排除属性。
//
// 行为：
//   - 目标版本低于属性的 SinceVersion 时跳过；
//   - 目标版本高于属性的 UntilVersion 时跳过；
//   - 类级别恒不跳过。
type Version struct {
	version semver.Version
}

// 编译期断言：确保 Version 实现了 Strategy 接口。
var _ Strategy = (*Version)(nil)

// NewVersion 以已解析的语义化版本创建版本排除策略。
func NewVersion(v semver.Version) *Version {
	return &Version{version: v}
}

// ParseVersion 解析版本号并创建版本排除策略。
func ParseVersion(v string) (*Version, error) {
	parsed, err := semver.Parse(v)
	if err != nil {
		return nil, serr.WrapErrValueInvalid("semantic version", v, "parsing exclusion version")
	}
	return NewVersion(parsed), nil
}

func (v *Version) ShouldSkipClass(*metadata.ClassMetadata, NavigatorContext) (bool, error) {
	return false, nil
}

func (v *Version) ShouldSkipProperty(prop *metadata.PropertyMetadata, _ NavigatorContext) (bool, error) {
	if prop.SinceVersion != nil && v.version.LT(*prop.SinceVersion) {
		return true, nil
	}
	if prop.UntilVersion != nil && v.version.GT(*prop.UntilVersion) {
		return true, nil
	}
	return false, nil
}
