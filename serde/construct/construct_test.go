package construct

import (
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/graph"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// fillVisitor 把 map 文档回填到构造出的对象上，仅实现测试所需的行为。
type fillVisitor struct {
	stack []any
}

var _ graph.Visitor = (*fillVisitor)(nil)

func (v *fillVisitor) Prepare(data any) (any, error) { return data, nil }

func (v *fillVisitor) VisitNil(t *types.Type, ctx *graph.Context) (any, error) { return nil, nil }

func (v *fillVisitor) VisitString(data any, t *types.Type, ctx *graph.Context) (any, error) {
	return data, nil
}

func (v *fillVisitor) VisitBool(data any, t *types.Type, ctx *graph.Context) (any, error) {
	return data, nil
}

func (v *fillVisitor) VisitInt(data any, t *types.Type, ctx *graph.Context) (any, error) {
	return data, nil
}

func (v *fillVisitor) VisitFloat(data any, t *types.Type, ctx *graph.Context) (any, error) {
	return data, nil
}

func (v *fillVisitor) VisitArray(data any, t *types.Type, ctx *graph.Context) (any, error) {
	return data, nil
}

func (v *fillVisitor) StartObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) error {
	v.stack = append(v.stack, data)
	return nil
}

func (v *fillVisitor) VisitProperty(pm *metadata.PropertyMetadata, data any, ctx *graph.Context) error {
	doc, ok := data.(map[string]any)
	if !ok {
		return errors.Newf("expected map input, got %T", data)
	}
	raw, ok := doc[pm.SerializedName]
	if !ok {
		return nil
	}

	value, err := ctx.Navigator().Accept(raw, pm.Type, ctx)
	if err != nil {
		return err
	}
	if value == nil {
		return nil
	}

	obj := v.stack[len(v.stack)-1]
	field := reflect.ValueOf(obj).Elem().FieldByIndex(pm.FieldIndex)
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(field.Type()) {
		return errors.Newf("cannot assign %T to %s", value, field.Type())
	}
	field.Set(rv)
	return nil
}

func (v *fillVisitor) EndObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
	obj := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return obj, nil
}

func (v *fillVisitor) Result(root any) (any, error) { return root, nil }

type profile struct {
	Name string
	Home *address
}

type address struct {
	City string
}

type vehicle interface {
	Wheels() int
}

type ConstructSuite struct {
	suite.Suite

	registry *metadata.Registry
}

func (s *ConstructSuite) SetupTest() {
	s.registry = metadata.NewRegistry()
	s.Require().NoError(s.registry.Register(
		metadata.NewClass("Profile", profile{}).
			Property("Name").
			Property("Home"),
		metadata.NewClass("Address", address{}).
			Property("City"),
		metadata.NewInterface("Vehicle", (*vehicle)(nil)),
	))
}

func (s *ConstructSuite) deserialize(ctor graph.ObjectConstructor, data any, t *types.Type, attrs map[string]any) (any, error) {
	nav, err := graph.NewDeserializationNavigator(graph.DeserializationNavigatorOptions{
		Provider:    s.registry,
		Constructor: ctor,
	})
	s.Require().NoError(err)

	ctx, err := graph.NewContext(graph.ContextOptions{
		Direction:  types.DirectionDeserialization,
		Format:     "json",
		Visitor:    &fillVisitor{},
		Namer:      s.registry,
		Attributes: attrs,
	})
	s.Require().NoError(err)
	ctx.BindNavigator(nav)

	return nav.Accept(data, t, ctx)
}

func (s *ConstructSuite) TestReflectionConstructsPointer() {
	cm, err := s.registry.MetadataFor("Profile")
	s.Require().NoError(err)

	obj, err := NewReflectionConstructor().Construct(&fillVisitor{}, cm, nil, types.Named("Profile"), nil)
	s.Require().NoError(err)
	s.Require().IsType(&profile{}, obj)
	s.Equal(profile{}, *obj.(*profile))
}

func (s *ConstructSuite) TestReflectionInterfaceMetadataYieldsNoInstance() {
	cm, err := s.registry.MetadataFor("Vehicle")
	s.Require().NoError(err)

	obj, err := NewReflectionConstructor().Construct(&fillVisitor{}, cm, nil, types.Named("Vehicle"), nil)
	s.NoError(err)
	s.Nil(obj)

	_, err = s.deserialize(NewReflectionConstructor(), map[string]any{}, types.Named("Vehicle"), nil)
	s.ErrorIs(err, serr.ErrConstructorMissing)
}

func (s *ConstructSuite) TestReflectionPopulatesDocument() {
	doc := map[string]any{"name": "ada", "home": map[string]any{"city": "Oslo"}}

	result, err := s.deserialize(NewReflectionConstructor(), doc, types.Named("Profile"), nil)
	s.Require().NoError(err)

	got, ok := result.(*profile)
	s.Require().True(ok)
	s.Equal("ada", got.Name)
	s.Require().NotNil(got.Home)
	s.Equal("Oslo", got.Home.City)
}

func (s *ConstructSuite) TestInitializedReusesRootTarget() {
	staleHome := &address{City: "Bergen"}
	target := &profile{Name: "stale", Home: staleHome}
	doc := map[string]any{"name": "ada", "home": map[string]any{"city": "Oslo"}}

	result, err := s.deserialize(
		NewInitializedConstructor(nil),
		doc,
		types.Named("Profile"),
		map[string]any{TargetAttribute: target},
	)
	s.Require().NoError(err)

	s.Same(target, result)
	s.Equal("ada", target.Name)
	// 嵌套对象不复用目标实例，旧的 Home 被新构造的实例替换。
	s.NotSame(staleHome, target.Home)
	s.Equal("Oslo", target.Home.City)
}

func (s *ConstructSuite) TestInitializedFallsBackWithoutTarget() {
	doc := map[string]any{"name": "ada"}

	result, err := s.deserialize(NewInitializedConstructor(nil), doc, types.Named("Profile"), nil)
	s.Require().NoError(err)

	got, ok := result.(*profile)
	s.Require().True(ok)
	s.Equal("ada", got.Name)
}

func (s *ConstructSuite) TestInitializedCustomFallback() {
	calls := 0
	fallback := constructorFunc(func(v graph.Visitor, cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
		calls++
		return NewReflectionConstructor().Construct(v, cm, data, t, ctx)
	})

	doc := map[string]any{"name": "ada", "home": map[string]any{"city": "Oslo"}}
	result, err := s.deserialize(
		NewInitializedConstructor(fallback),
		doc,
		types.Named("Profile"),
		map[string]any{TargetAttribute: &profile{}},
	)
	s.Require().NoError(err)

	// 根对象来自 target，只有嵌套的 Address 走回退构造器。
	s.Equal(1, calls)
	s.Equal("Oslo", result.(*profile).Home.City)
}

// constructorFunc 把函数适配为 ObjectConstructor。
type constructorFunc func(v graph.Visitor, cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error)

func (f constructorFunc) Construct(v graph.Visitor, cm *metadata.ClassMetadata, data any, t *types.Type, ctx *graph.Context) (any, error) {
	return f(v, cm, data, t, ctx)
}

func TestConstructSuite(t *testing.T) {
	suite.Run(t, new(ConstructSuite))
}
