package exclusion

import (
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
)

// Evaluator 对排除表达式求值，由外部实现。
type Evaluator interface {
	// Evaluate 在给定变量环境下求值表达式。
	// 变量环境至少包含 object、property 与 context 三项。
	Evaluate(expr string, vars map[string]any) (any, error)
}

// Expression 按表达式结果排除属性。
//
// 约定：
//   - 仅作用于属性级别，类级别恒不跳过；
//   - 表达式必须求值为布尔值，否则视为数据错误；
//   - 未配置 ExcludeIf 的属性恒不跳过。
type Expression struct {
	evaluator Evaluator
}

// 编译期断言：确保 Expression 实现了 Strategy 接口。
var _ Strategy = (*Expression)(nil)

// NewExpression 创建表达式排除策略。
func NewExpression(evaluator Evaluator) *Expression {
	return &Expression{evaluator: evaluator}
}

func (e *Expression) ShouldSkipClass(*metadata.ClassMetadata, NavigatorContext) (bool, error) {
	return false, nil
}

func (e *Expression) ShouldSkipProperty(prop *metadata.PropertyMetadata, ctx NavigatorContext) (bool, error) {
	if prop.ExcludeIf == "" {
		return false, nil
	}

	vars := map[string]any{
		"object":   ctx.CurrentObject(),
		"property": prop.Name,
		"context":  ctx,
	}
	result, err := e.evaluator.Evaluate(prop.ExcludeIf, vars)
	if err != nil {
		return false, err
	}

	skip, ok := result.(bool)
	if !ok {
		return false, serr.WrapErrValueInvalid("bool", result, "evaluating exclusion expression "+prop.ExcludeIf)
	}
	return skip, nil
}
