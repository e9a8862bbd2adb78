package types

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
)

type ParserSuite struct {
	suite.Suite
}

func (s *ParserSuite) TestSimple() {
	t, err := Parse("string")
	s.NoError(err)
	s.Equal("string", t.Name)
	s.Empty(t.Params)
}

func (s *ParserSuite) TestGeneric() {
	t, err := Parse("array<string>")
	s.NoError(err)
	s.Equal("array", t.Name)
	s.Require().Len(t.Params, 1)
	s.Equal("string", t.Params[0].Name)
}

func (s *ParserSuite) TestNested() {
	t, err := Parse("array<string, array<int, Order>>")
	s.NoError(err)
	s.Equal("array", t.Name)
	s.Require().Len(t.Params, 2)
	s.Equal("string", t.Params[0].Name)
	s.Equal("array", t.Params[1].Name)
	s.Require().Len(t.Params[1].Params, 2)
	s.Equal("int", t.Params[1].Params[0].Name)
	s.Equal("Order", t.Params[1].Params[1].Name)
}

func (s *ParserSuite) TestQuotedLiteral() {
	t, err := Parse("DateTime<'2006-01-02'>")
	s.NoError(err)
	s.Equal("DateTime", t.Name)
	s.Require().Len(t.Params, 1)
	s.Equal("2006-01-02", t.Params[0].Name)
}

func (s *ParserSuite) TestWhitespace() {
	t, err := Parse("  array< string , Order >  ")
	s.NoError(err)
	s.Equal("array", t.Name)
	s.Require().Len(t.Params, 2)
	s.Equal("Order", t.Params[1].Name)
}

func (s *ParserSuite) TestInvalid() {
	for _, expr := range []string{
		"",
		"array<",
		"array<string",
		"array<string,",
		"array<>",
		"<string>",
		"array<string>>",
		"DateTime<'2006",
		"array string",
	} {
		_, err := Parse(expr)
		s.ErrorIs(err, serr.ErrTypeStringInvalid, "expr: %q", expr)
	}
}

func (s *ParserSuite) TestMustParse() {
	s.NotPanics(func() {
		t := MustParse("array<int>")
		s.Equal("array", t.Name)
	})
	s.Panics(func() {
		MustParse("array<")
	})
}

func (s *ParserSuite) TestRoundTripString() {
	for _, expr := range []string{
		"string",
		"array<string>",
		"array<string, Order>",
		"array<string, array<int>>",
	} {
		t, err := Parse(expr)
		s.NoError(err)
		s.Equal(expr, t.String())
	}
}

func TestParser(t *testing.T) {
	suite.Run(t, new(ParserSuite))
}
