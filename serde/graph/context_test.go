package graph

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

type ContextSuite struct {
	suite.Suite
}

func (s *ContextSuite) newContext(opts ContextOptions) *Context {
	if opts.Visitor == nil {
		opts.Visitor = &docVisitor{}
	}
	ctx, err := NewContext(opts)
	s.Require().NoError(err)
	return ctx
}

func (s *ContextSuite) TestVisitorRequired() {
	_, err := NewContext(ContextOptions{})
	s.Error(err)
}

func (s *ContextSuite) TestDefaults() {
	ctx := s.newContext(ContextOptions{Direction: types.DirectionSerialization, Format: "json"})
	s.Equal(types.DirectionSerialization, ctx.Direction())
	s.Equal("json", ctx.Format())
	s.NotNil(ctx.Exclusion())
	s.False(ctx.ShouldSerializeNulls())
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
	s.Nil(ctx.Plans())
}

func (s *ContextSuite) TestAttributes() {
	ctx := s.newContext(ContextOptions{Attributes: map[string]any{"version": "1.2.0"}})

	v, ok := ctx.Attribute("version")
	s.True(ok)
	s.Equal("1.2.0", v)

	_, ok = ctx.Attribute("missing")
	s.False(ok)

	ctx.SetAttribute("groups", []string{"api"})
	v, ok = ctx.Attribute("groups")
	s.True(ok)
	s.Equal([]string{"api"}, v)
}

func (s *ContextSuite) TestPath() {
	ctx := s.newContext(ContextOptions{})
	s.Equal("$", ctx.Path())

	order := &metadata.ClassMetadata{Name: "Order"}
	lines := &metadata.PropertyMetadata{Name: "Lines"}
	sku := &metadata.PropertyMetadata{Name: "SKU"}

	ctx.pushClass(order)
	ctx.pushProperty(lines)
	s.Equal("$.Lines", ctx.Path())
	s.Equal(order, ctx.CurrentClass())
	s.Equal(lines, ctx.CurrentProperty())

	ctx.pushProperty(sku)
	s.Equal("$.Lines.SKU", ctx.Path())

	ctx.popProperty()
	ctx.popProperty()
	ctx.popClass()
	s.Equal("$", ctx.Path())
	s.Nil(ctx.CurrentClass())
	s.Nil(ctx.CurrentProperty())
}

func (s *ContextSuite) TestCurrentObject() {
	ctx := s.newContext(ContextOptions{})
	s.Nil(ctx.CurrentObject())

	obj := &struct{ X int }{X: 1}
	ctx.pushObject(obj)
	s.Equal(obj, ctx.CurrentObject())

	ctx.popObject()
	s.Nil(ctx.CurrentObject())
}

func (s *ContextSuite) TestDepthGuard() {
	ctx := s.newContext(ContextOptions{MaxDepth: 2})
	s.NoError(ctx.increaseDepth())
	s.NoError(ctx.increaseDepth())

	err := ctx.increaseDepth()
	s.ErrorIs(err, serr.ErrDepthLimitExceeded)
	s.Equal(2, ctx.Depth())

	ctx.decreaseDepth()
	ctx.decreaseDepth()
	s.Zero(ctx.Depth())
	s.Equal(2, ctx.MaxDepthSeen())
}

func (s *ContextSuite) TestVisitingSet() {
	ctx := s.newContext(ContextOptions{})
	a := &struct{ X int }{}
	ref, ok := refOf(a)
	s.Require().True(ok)
	s.False(ctx.isVisiting(ref))

	ctx.startVisiting(ref)
	s.True(ctx.isVisiting(ref))
	s.Equal(1, ctx.VisitingCount())

	ctx.stopVisiting(ref)
	s.False(ctx.isVisiting(ref))
	s.Zero(ctx.VisitingCount())
}

func (s *ContextSuite) TestRefOfValueNotTrackable() {
	_, ok := refOf(struct{ X int }{})
	s.False(ok)

	_, ok = refOf(42)
	s.False(ok)

	_, ok = refOf((*struct{ X int })(nil))
	s.False(ok)
}

func TestContextSuite(t *testing.T) {
	suite.Run(t, new(ContextSuite))
}
