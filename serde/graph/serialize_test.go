package graph

import (
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/event"
	"github.com/lk2023060901/serde-garden-go/serde/exclusion"
	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// docVisitor 为测试用序列化访问器：把对象图组装成嵌套 map 文档，
// 同时记录引擎回调顺序供断言。
type docVisitor struct {
	calls  []string
	stack  []map[string]any
	isNull func(any) bool
	failAt string
}

var _ Visitor = (*docVisitor)(nil)

func (v *docVisitor) record(call string) {
	v.calls = append(v.calls, call)
}

func (v *docVisitor) count(call string) int {
	n := 0
	for _, c := range v.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (v *docVisitor) Prepare(data any) (any, error) {
	return data, nil
}

func (v *docVisitor) IsNull(data any) bool {
	return v.isNull != nil && v.isNull(data)
}

func (v *docVisitor) VisitNil(t *types.Type, ctx *Context) (any, error) {
	v.record("nil")
	return nil, nil
}

func (v *docVisitor) VisitString(data any, t *types.Type, ctx *Context) (any, error) {
	v.record("string")
	return data, nil
}

func (v *docVisitor) VisitBool(data any, t *types.Type, ctx *Context) (any, error) {
	v.record("bool")
	return data, nil
}

func (v *docVisitor) VisitInt(data any, t *types.Type, ctx *Context) (any, error) {
	v.record("int")
	return data, nil
}

func (v *docVisitor) VisitFloat(data any, t *types.Type, ctx *Context) (any, error) {
	v.record("float")
	return data, nil
}

func (v *docVisitor) VisitArray(data any, t *types.Type, ctx *Context) (any, error) {
	v.record("array")
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return data, nil
	}

	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := ctx.Navigator().Accept(rv.Index(i).Interface(), t.Param(0), ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func (v *docVisitor) StartObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *Context) error {
	v.record("start:" + cm.Name)
	v.stack = append(v.stack, make(map[string]any))
	return nil
}

func (v *docVisitor) VisitProperty(pm *metadata.PropertyMetadata, data any, ctx *Context) error {
	v.record("prop:" + pm.Name)
	if v.failAt == pm.Name {
		return errors.New("visit failed")
	}

	value, err := pm.Value(data)
	if err != nil {
		return err
	}
	result, err := ctx.Navigator().Accept(value, pm.Type, ctx)
	if err != nil {
		return err
	}
	v.stack[len(v.stack)-1][pm.SerializedName] = result
	return nil
}

func (v *docVisitor) EndObject(cm *metadata.ClassMetadata, data any, t *types.Type, ctx *Context) (any, error) {
	v.record("end:" + cm.Name)
	doc := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return doc, nil
}

func (v *docVisitor) Result(root any) (any, error) {
	return root, nil
}

// skipStrategy 按固定规则跳过类或指定名称的属性。
type skipStrategy struct {
	class    bool
	property string
}

func (f skipStrategy) ShouldSkipClass(*metadata.ClassMetadata, exclusion.NavigatorContext) (bool, error) {
	return f.class, nil
}

func (f skipStrategy) ShouldSkipProperty(pm *metadata.PropertyMetadata, _ exclusion.NavigatorContext) (bool, error) {
	return pm.Name == f.property, nil
}

// fakeEvaluator 按表达式文本查表返回固定结果。
type fakeEvaluator struct {
	exprs   []string
	results map[string]any
}

func (f *fakeEvaluator) Evaluate(expr string, vars map[string]any) (any, error) {
	f.exprs = append(f.exprs, expr)
	if v, ok := f.results[expr]; ok {
		return v, nil
	}
	return false, nil
}

// 测试夹具类型。

type account struct {
	ID    int64
	Name  string
	Email string
	Peer  *account
}

type vault struct {
	Token  string
	Public string
}

type job struct {
	Name string
	Done chan struct{}
}

type shape interface {
	Area() float64
}

type circle struct {
	Radius float64
}

func (c circle) Area() float64 {
	return 3 * c.Radius * c.Radius
}

type part struct {
	ID int64
}

type assembly struct {
	part
	Extra string
}

type animal interface {
	Sound() string
}

type cat struct {
	Name string
}

func (cat) Sound() string {
	return "meow"
}

type dog struct {
	Name  string
	Barks bool
}

func (dog) Sound() string {
	return "woof"
}

type SerializeSuite struct {
	suite.Suite

	registry *metadata.Registry
}

func (s *SerializeSuite) SetupTest() {
	s.registry = metadata.NewRegistry()
	s.Require().NoError(s.registry.Register(
		metadata.NewClass("Account", account{}).
			Property("ID").
			Property("Name").
			Property("Email").
			Property("Peer"),
	))
}

func (s *SerializeSuite) newNavigator(opts SerializationNavigatorOptions) *SerializationNavigator {
	if opts.Provider == nil {
		opts.Provider = s.registry
	}
	nav, err := NewSerializationNavigator(opts)
	s.Require().NoError(err)
	return nav
}

func (s *SerializeSuite) serialize(nav *SerializationNavigator, visitor *docVisitor, data any, t *types.Type, mutate ...func(*ContextOptions)) (any, *Context, error) {
	opts := ContextOptions{
		Direction: types.DirectionSerialization,
		Format:    "json",
		Visitor:   visitor,
		Namer:     s.registry,
	}
	for _, m := range mutate {
		m(&opts)
	}

	ctx, err := NewContext(opts)
	s.Require().NoError(err)
	ctx.BindNavigator(nav)

	result, err := nav.Accept(data, t, ctx)
	return result, ctx, err
}

func (s *SerializeSuite) TestProviderRequired() {
	_, err := NewSerializationNavigator(SerializationNavigatorOptions{})
	s.Error(err)
}

func (s *SerializeSuite) TestPrimitiveDispatch() {
	nav := s.newNavigator(SerializationNavigatorOptions{})

	visitor := &docVisitor{}
	result, _, err := s.serialize(nav, visitor, "hello", nil)
	s.NoError(err)
	s.Equal("hello", result)
	s.Equal([]string{"string"}, visitor.calls)

	visitor = &docVisitor{}
	result, _, err = s.serialize(nav, visitor, 42, nil)
	s.NoError(err)
	s.Equal(42, result)
	s.Equal([]string{"int"}, visitor.calls)

	visitor = &docVisitor{}
	result, _, err = s.serialize(nav, visitor, true, nil)
	s.NoError(err)
	s.Equal(true, result)
	s.Equal([]string{"bool"}, visitor.calls)

	visitor = &docVisitor{}
	result, _, err = s.serialize(nav, visitor, 2.5, nil)
	s.NoError(err)
	s.Equal(2.5, result)
	s.Equal([]string{"float"}, visitor.calls)
}

func (s *SerializeSuite) TestNilDataForcesNull() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	result, _, err := s.serialize(nav, visitor, nil, types.Named("Account"))
	s.NoError(err)
	s.Nil(result)
	s.Equal([]string{"nil"}, visitor.calls)
}

func (s *SerializeSuite) TestCustomNullPredicateWins() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{
		isNull: func(data any) bool {
			v, ok := data.(string)
			return ok && v == ""
		},
	}

	result, _, err := s.serialize(nav, visitor, "", types.New(types.NameString))
	s.NoError(err)
	s.Nil(result)
	s.Equal([]string{"nil"}, visitor.calls)
}

func (s *SerializeSuite) TestObjectGraph() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	acc := &account{ID: 7, Name: "ada", Email: "ada@example.com"}
	result, ctx, err := s.serialize(nav, visitor, acc, nil)
	s.Require().NoError(err)

	doc, ok := result.(map[string]any)
	s.Require().True(ok)
	s.Equal(int64(7), doc["id"])
	s.Equal("ada", doc["name"])
	s.Equal("ada@example.com", doc["email"])
	s.Nil(doc["peer"])

	s.Equal([]string{
		"start:Account",
		"prop:ID", "int",
		"prop:Name", "string",
		"prop:Email", "string",
		"prop:Peer", "nil",
		"end:Account",
	}, visitor.calls)

	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
	s.Equal(1, ctx.MaxDepthSeen())
}

func (s *SerializeSuite) TestCycleBreaksToNull() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	a := &account{ID: 1, Name: "a"}
	b := &account{ID: 2, Name: "b"}
	a.Peer, b.Peer = b, a

	result, ctx, err := s.serialize(nav, visitor, a, nil)
	s.Require().NoError(err)

	doc := result.(map[string]any)
	peer := doc["peer"].(map[string]any)
	s.Equal(int64(2), peer["id"])
	s.Nil(peer["peer"])

	s.Equal(2, visitor.count("start:Account"))
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
}

func (s *SerializeSuite) TestSharedSiblingIsNotCyclic() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	shared := &account{ID: 9, Name: "shared"}
	a := &account{ID: 1, Peer: shared}
	b := &account{ID: 2, Peer: shared}

	result, ctx, err := s.serialize(nav, visitor, []*account{a, b}, nil)
	s.Require().NoError(err)

	docs := result.([]any)
	s.Require().Len(docs, 2)
	first := docs[0].(map[string]any)["peer"].(map[string]any)
	second := docs[1].(map[string]any)["peer"].(map[string]any)
	s.Equal(int64(9), first["id"])
	s.Equal(int64(9), second["id"])

	s.Equal(4, visitor.count("start:Account"))
	s.Zero(ctx.VisitingCount())
}

func (s *SerializeSuite) TestClassExclusionShortCircuits() {
	visitor := &docVisitor{}
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Account", account{}).
			Property("ID").
			OnPreSerialize(func(any) error {
				visitor.record("life:pre")
				return nil
			}).
			OnPostSerialize(func(any) error {
				visitor.record("life:post")
				return nil
			}),
	))

	events := event.NewRegistry()
	events.Listen(event.PreSerializeName, func(any) error {
		visitor.record("event:pre")
		return nil
	})
	events.Listen(event.PostSerializeName, func(any) error {
		visitor.record("event:post")
		return nil
	})

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg, Dispatcher: events})
	result, ctx, err := s.serialize(nav, visitor, &account{ID: 1}, nil, func(opts *ContextOptions) {
		opts.Namer = reg
		opts.Exclusion = skipStrategy{class: true}
	})
	s.NoError(err)
	s.Nil(result)

	// 类级排除是软跳过：pre 事件已发出，生命周期回调与 post 事件一律不发。
	s.Equal([]string{"event:pre"}, visitor.calls)
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
}

func (s *SerializeSuite) TestPropertyExclusion() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	acc := &account{ID: 1, Name: "ada", Email: "ada@example.com"}
	result, _, err := s.serialize(nav, visitor, acc, nil, func(opts *ContextOptions) {
		opts.Exclusion = skipStrategy{property: "Email"}
	})
	s.Require().NoError(err)

	doc := result.(map[string]any)
	s.NotContains(doc, "email")
	s.Equal("ada", doc["name"])
	s.NotContains(visitor.calls, "prop:Email")
}

func (s *SerializeSuite) TestExpressionExcludesPropertiesOnly() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Vault", vault{}).
			Property("Token", metadata.WithExcludeIf("hide_token")).
			Property("Public"),
	))

	eval := &fakeEvaluator{results: map[string]any{"hide_token": true}}
	nav := s.newNavigator(SerializationNavigatorOptions{
		Provider:   reg,
		Expression: exclusion.NewExpression(eval),
	})

	visitor := &docVisitor{}
	result, _, err := s.serialize(nav, visitor, &vault{Token: "t0", Public: "hi"}, nil, func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.Require().NoError(err)

	doc := result.(map[string]any)
	s.NotContains(doc, "token")
	s.Equal("hi", doc["public"])
	s.NotContains(visitor.calls, "prop:Token")
	s.Contains(visitor.calls, "start:Vault")
	s.Equal([]string{"hide_token"}, eval.exprs)
}

func (s *SerializeSuite) TestExpressionEvaluatorRequired() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Vault", vault{}).
			Property("Token", metadata.WithExcludeIf("hide_token")).
			Property("Public"),
	))

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg})
	visitor := &docVisitor{}
	_, ctx, err := s.serialize(nav, visitor, &vault{Token: "t0"}, nil, func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.ErrorIs(err, serr.ErrExpressionEvaluatorRequired)
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
}

func (s *SerializeSuite) TestPreSerializeEventRewritesType() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Vault", vault{}).Property("Token").Property("Public"),
		metadata.NewClass("VaultRedacted", vault{}).Property("Public"),
	))

	events := event.NewRegistry()
	events.Listen(event.PreSerializeName, func(payload any) error {
		payload.(*event.PreSerializeEvent).Type = types.Named("VaultRedacted")
		return nil
	}, event.ForClass("Vault"))

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg, Dispatcher: events})
	visitor := &docVisitor{}
	result, _, err := s.serialize(nav, visitor, &vault{Token: "t0", Public: "ok"}, types.Named("Vault"), func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.Require().NoError(err)

	doc := result.(map[string]any)
	s.Equal("ok", doc["public"])
	s.NotContains(doc, "token")
	s.Contains(visitor.calls, "start:VaultRedacted")
	s.NotContains(visitor.calls, "start:Vault")
}

func (s *SerializeSuite) TestHandlerBypassesTraversal() {
	handlers := NewHandlerRegistry()
	s.Require().NoError(handlers.Register(types.DirectionSerialization, "Timestamp", "json",
		func(v Visitor, data any, t *types.Type, ctx *Context) (any, error) {
			return "2026-01-02", nil
		}))

	fired := false
	events := event.NewRegistry()
	events.Listen(event.PostSerializeName, func(any) error {
		fired = true
		return nil
	})

	nav := s.newNavigator(SerializationNavigatorOptions{Handlers: handlers, Dispatcher: events})
	visitor := &docVisitor{}

	// Timestamp 不是注册过的类：处理器命中即返回，证明未触发元数据加载。
	result, ctx, err := s.serialize(nav, visitor, &account{}, types.Named("Timestamp"))
	s.NoError(err)
	s.Equal("2026-01-02", result)
	s.Empty(visitor.calls)
	s.False(fired)
	s.Zero(ctx.VisitingCount())
	s.Zero(ctx.Depth())
}

func (s *SerializeSuite) TestLifecycleAndEventOrdering() {
	visitor := &docVisitor{}
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Account", account{}).
			Property("ID").
			OnPreSerialize(func(any) error {
				visitor.record("life:pre")
				return nil
			}).
			OnPostSerialize(func(any) error {
				visitor.record("life:post")
				return nil
			}),
	))

	ctx, err := NewContext(ContextOptions{
		Direction: types.DirectionSerialization,
		Format:    "json",
		Visitor:   visitor,
		Namer:     reg,
	})
	s.Require().NoError(err)

	postDepth, postVisiting := -1, -1
	events := event.NewRegistry()
	events.Listen(event.PreSerializeName, func(any) error {
		visitor.record("event:pre")
		return nil
	})
	events.Listen(event.PostSerializeName, func(any) error {
		visitor.record("event:post")
		postDepth = ctx.Depth()
		postVisiting = ctx.VisitingCount()
		return nil
	})

	nav, err := NewSerializationNavigator(SerializationNavigatorOptions{Provider: reg, Dispatcher: events})
	s.Require().NoError(err)
	ctx.BindNavigator(nav)

	_, err = nav.Accept(&account{ID: 3}, nil, ctx)
	s.Require().NoError(err)

	s.Equal([]string{
		"event:pre",
		"life:pre",
		"start:Account",
		"prop:ID", "int",
		"end:Account",
		"life:post",
		"event:post",
	}, visitor.calls)

	// post 事件发出时访问标记与深度均已释放。
	s.Zero(postDepth)
	s.Zero(postVisiting)
}

func (s *SerializeSuite) TestEventFiresBeforeMetadataLoad() {
	visitor := &docVisitor{}
	events := event.NewRegistry()
	events.Listen(event.PreSerializeName, func(any) error {
		visitor.record("event:pre")
		return nil
	})

	nav := s.newNavigator(SerializationNavigatorOptions{Dispatcher: events})
	_, ctx, err := s.serialize(nav, visitor, &vault{}, types.Named("Ghost"))
	s.ErrorIs(err, serr.ErrTypeUnknown)
	s.Equal([]string{"event:pre"}, visitor.calls)
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
}

func (s *SerializeSuite) TestResourceRejected() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	_, _, err := s.serialize(nav, visitor, make(chan int), nil)
	s.ErrorIs(err, serr.ErrResourceNotSupported)
}

func (s *SerializeSuite) TestResourcePropertyReportsPath() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Job", job{}).Property("Name").Property("Done"),
	))

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg})
	visitor := &docVisitor{}
	_, _, err := s.serialize(nav, visitor, &job{Name: "sync", Done: make(chan struct{})}, nil, func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.ErrorIs(err, serr.ErrResourceNotSupported)
	s.ErrorContains(err, "$.Done")
}

func (s *SerializeSuite) TestMaxDepthExceeded() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{}

	a3 := &account{ID: 3}
	a2 := &account{ID: 2, Peer: a3}
	a1 := &account{ID: 1, Peer: a2}

	_, ctx, err := s.serialize(nav, visitor, a1, nil, func(opts *ContextOptions) {
		opts.MaxDepth = 2
	})
	s.ErrorIs(err, serr.ErrDepthLimitExceeded)
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
	s.Equal(2, ctx.MaxDepthSeen())
}

func (s *SerializeSuite) TestNarrowsInterfaceToConcrete() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewInterface("Shape", (*shape)(nil)),
		metadata.NewClass("Circle", circle{}).Property("Radius"),
	))

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg})
	visitor := &docVisitor{}
	result, _, err := s.serialize(nav, visitor, circle{Radius: 2}, types.Named("Shape"), func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.Require().NoError(err)

	doc := result.(map[string]any)
	s.Equal(float64(2), doc["radius"])
	s.Contains(visitor.calls, "start:Circle")
	s.NotContains(visitor.calls, "start:Shape")
}

func (s *SerializeSuite) TestNarrowsEmbeddedStruct() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewClass("Part", part{}).Property("ID"),
		metadata.NewClass("Assembly", assembly{}).Property("ID").Property("Extra"),
	))

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg})
	visitor := &docVisitor{}
	result, _, err := s.serialize(nav, visitor, assembly{part: part{ID: 5}, Extra: "x"}, types.Named("Part"), func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.Require().NoError(err)

	doc := result.(map[string]any)
	s.Equal(int64(5), doc["id"])
	s.Equal("x", doc["extra"])
	s.Contains(visitor.calls, "start:Assembly")
}

func (s *SerializeSuite) TestDiscriminatorValueEmitted() {
	reg := metadata.NewRegistry()
	s.Require().NoError(reg.Register(
		metadata.NewInterface("Animal", (*animal)(nil)).
			Discriminator("type", map[string]string{"cat": "Cat", "dog": "Dog"}),
		metadata.NewClass("Cat", cat{}).Property("Name"),
		metadata.NewClass("Dog", dog{}).Property("Name").Property("Barks"),
	))

	nav := s.newNavigator(SerializationNavigatorOptions{Provider: reg})
	visitor := &docVisitor{}
	result, _, err := s.serialize(nav, visitor, cat{Name: "Paws"}, types.Named("Animal"), func(opts *ContextOptions) {
		opts.Namer = reg
	})
	s.Require().NoError(err)

	doc := result.(map[string]any)
	s.Equal("Paws", doc["name"])
	s.Equal("cat", doc["type"])
}

func (s *SerializeSuite) TestVisitErrorReleasesState() {
	nav := s.newNavigator(SerializationNavigatorOptions{})
	visitor := &docVisitor{failAt: "Email"}

	_, ctx, err := s.serialize(nav, visitor, &account{ID: 1, Email: "x"}, nil)
	s.ErrorContains(err, "visit failed")
	s.Zero(ctx.Depth())
	s.Zero(ctx.VisitingCount())
}

func TestSerializeSuite(t *testing.T) {
	suite.Run(t, new(SerializeSuite))
}
