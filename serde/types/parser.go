package types

import (
	"strings"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
)

// Parse 将类型字符串解析为类型描述。
//
// 语法：
//   - 基本形式为 name 或 name<param, param, ...>；
//   - 参数本身也是类型字符串，可以嵌套，例如 array<string, array<int>>；
//   - 参数支持单引号字面量，例如 DateTime<'2006-01-02'>，字面量原样作为参数名；
//   - 名称允许字母、数字以及 _ . / - 字符。
//
// 行为：
//   - 语法非法时返回 ErrTypeStringInvalid，并携带出错位置。
func Parse(expr string) (*Type, error) {
	p := &parser{src: expr}
	p.skipSpace()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, serr.WrapErrTypeStringInvalid(expr, p.pos, "trailing characters after type")
	}
	return t, nil
}

// MustParse 与 Parse 相同，解析失败时 panic。
// 仅用于以字面量声明类型的初始化场景。
func MustParse(expr string) *Type {
	t, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src string
	pos int
}

func (p *parser) parseType() (*Type, error) {
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.eat('<') {
		return Named(name), nil
	}

	var params []Type
	for {
		p.skipSpace()
		param, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, *param)

		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat('>') {
			return New(name, params...), nil
		}
		return nil, serr.WrapErrTypeStringInvalid(p.src, p.pos, "expected ',' or '>'")
	}
}

func (p *parser) parseName() (string, error) {
	if p.eat('\'') {
		start := p.pos
		end := strings.IndexByte(p.src[start:], '\'')
		if end < 0 {
			return "", serr.WrapErrTypeStringInvalid(p.src, start, "unterminated quoted literal")
		}
		p.pos = start + end + 1
		return p.src[start : start+end], nil
	}

	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", serr.WrapErrTypeStringInvalid(p.src, start, "expected type name")
	}
	return p.src[start:p.pos], nil
}

func (p *parser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '/' || c == '-':
		return true
	default:
		return false
	}
}
