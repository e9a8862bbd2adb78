package metadata

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
)

type address struct {
	City string
	Zip  string
}

type order struct {
	ID        int
	Total     float64
	Tags      []string
	CreatedAt time.Time
	Timeout   time.Duration
	Payload   []byte
	ShipTo    address
	Meta      map[string]int
}

type animal interface {
	Sound() string
}

type cat struct {
	Name string
}

func (cat) Sound() string { return "meow" }

type dog struct {
	Name string
}

func (dog) Sound() string { return "woof" }

type MetadataSuite struct {
	suite.Suite
}

func (s *MetadataSuite) TestBuilderPropertyOrder() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Order", order{}).
			Property("Total").
			Property("ID"),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)
	s.Require().Len(cm.Properties, 2)
	s.Equal("Total", cm.Properties[0].Name)
	s.Equal("ID", cm.Properties[1].Name)
}

func (s *MetadataSuite) TestSerializedNames() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Order", order{}).
			Property("CreatedAt").
			Property("ID").
			Property("Total", WithSerializedName("grand_total")),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)
	s.Equal("created_at", cm.Properties[0].SerializedName)
	s.Equal("id", cm.Properties[1].SerializedName)
	s.Equal("grand_total", cm.Properties[2].SerializedName)
}

func (s *MetadataSuite) TestSnakeCase() {
	s.Equal("id", SnakeCase("ID"))
	s.Equal("created_at", SnakeCase("CreatedAt"))
	s.Equal("http_code", SnakeCase("HTTPCode"))
	s.Equal("html_body", SnakeCase("HTMLBody"))
	s.Equal("name", SnakeCase("Name"))
	s.Equal("user_id", SnakeCase("UserID"))
}

func (s *MetadataSuite) TestDerivedTypes() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Address", address{}).AllExported(),
		NewClass("Order", order{}).AllExported(),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)

	s.Equal("int", cm.FindProperty("ID").Type.Name)
	s.Equal("float", cm.FindProperty("Total").Type.Name)
	s.Equal("array<string>", cm.FindProperty("Tags").Type.String())
	s.Equal(TypeNameDateTime, cm.FindProperty("CreatedAt").Type.Name)
	s.Equal(TypeNameDuration, cm.FindProperty("Timeout").Type.Name)
	s.Equal("string", cm.FindProperty("Payload").Type.Name)
	s.Equal("Address", cm.FindProperty("ShipTo").Type.Name)
	s.Equal("array<string, int>", cm.FindProperty("Meta").Type.String())
}

func (s *MetadataSuite) TestUnresolvedObjectTypeStaysNil() {
	reg := NewRegistry()
	err := reg.Register(NewClass("Order", order{}).Property("ShipTo"))
	s.Require().NoError(err)

	// Address 未注册，属性类型只能在运行时推断。
	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)
	s.Nil(cm.FindProperty("ShipTo").Type)
}

func (s *MetadataSuite) TestPropertyValue() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Order", order{}).
			Property("ID").
			VirtualProperty("Label", func(obj any) (any, error) {
				return "order", nil
			}),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)

	v, err := cm.FindProperty("ID").Value(&order{ID: 42})
	s.NoError(err)
	s.Equal(42, v)

	v, err = cm.FindProperty("Label").Value(&order{})
	s.NoError(err)
	s.Equal("order", v)
	s.True(cm.FindProperty("Label").ReadOnly)
}

func (s *MetadataSuite) TestBuilderErrors() {
	reg := NewRegistry()

	s.ErrorIs(reg.Register(NewClass("Order", order{}).Property("Missing")), serr.ErrPropertyInvalid)
	s.ErrorIs(reg.Register(NewClass("Bad", 42)), serr.ErrMetadataInvalid)
	s.ErrorIs(reg.Register(NewClass("Order", order{}).Property("ID", WithSince("not-a-version"))), serr.ErrPropertyInvalid)
	s.ErrorIs(reg.Register(NewClass("Order", order{}).Discriminator("", nil)), serr.ErrMetadataInvalid)
	s.ErrorIs(reg.Register(NewInterface("Animal", animal(nil))), serr.ErrMetadataInvalid)
}

func (s *MetadataSuite) TestDuplicateRegistration() {
	reg := NewRegistry()
	s.NoError(reg.Register(NewClass("Order", order{}).Property("ID")))
	s.ErrorIs(reg.Register(NewClass("Order", order{}).Property("ID")), serr.ErrMetadataInvalid)
}

func (s *MetadataSuite) TestMetadataForUnknown() {
	reg := NewRegistry()
	_, err := reg.MetadataFor("Ghost")
	s.ErrorIs(err, serr.ErrTypeUnknown)
}

func (s *MetadataSuite) TestNameFor() {
	reg := NewRegistry()
	s.Require().NoError(reg.Register(NewClass("Order", order{}).Property("ID")))

	name, ok := reg.NameFor(reflect.TypeOf(order{}))
	s.True(ok)
	s.Equal("Order", name)

	name, ok = reg.NameFor(reflect.TypeOf(&order{}))
	s.True(ok)
	s.Equal("Order", name)

	_, ok = reg.NameFor(reflect.TypeOf(address{}))
	s.False(ok)
}

func (s *MetadataSuite) TestDiscriminatorInjectionBaseFirst() {
	reg := NewRegistry()
	err := reg.Register(
		NewInterface("Animal", (*animal)(nil)).
			Discriminator("type", map[string]string{"cat": "Cat", "dog": "Dog"}),
		NewClass("Cat", cat{}).Property("Name"),
		NewClass("Dog", dog{}).Property("Name"),
	)
	s.Require().NoError(err)

	s.assertDiscriminatorProperty(reg, "Cat", "cat")
	s.assertDiscriminatorProperty(reg, "Dog", "dog")
}

func (s *MetadataSuite) TestDiscriminatorInjectionConcreteFirst() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Cat", cat{}).Property("Name"),
		NewClass("Dog", dog{}).Property("Name"),
		NewInterface("Animal", (*animal)(nil)).
			Discriminator("type", map[string]string{"cat": "Cat", "dog": "Dog"}),
	)
	s.Require().NoError(err)

	s.assertDiscriminatorProperty(reg, "Cat", "cat")
	s.assertDiscriminatorProperty(reg, "Dog", "dog")
}

func (s *MetadataSuite) assertDiscriminatorProperty(reg *Registry, class, value string) {
	cm, err := reg.MetadataFor(class)
	s.Require().NoError(err)

	p := cm.FindProperty("type")
	s.Require().NotNil(p, "class %s should carry the discriminator property", class)
	s.True(p.Static)
	s.True(p.ReadOnly)
	s.Equal(value, p.StaticValue)
	s.Equal("type", p.SerializedName)
}

func (s *MetadataSuite) TestDiscriminatorInjectionSkipsDeclaredField() {
	type taggedDog struct {
		Type string
		Name string
	}
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Dog", taggedDog{}).Property("Type").Property("Name"),
		NewInterface("Animal", (*animal)(nil)).
			Discriminator("type", map[string]string{"dog": "Dog"}),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Dog")
	s.Require().NoError(err)
	s.Len(cm.Properties, 2)
	s.False(cm.Properties[0].Static)
}

func (s *MetadataSuite) TestLifecycleAndExpressionFlags() {
	reg := NewRegistry()
	called := 0
	err := reg.Register(
		NewClass("Order", order{}).
			Property("ID", WithExcludeIf("object.ID < 0")).
			OnPreSerialize(func(obj any) error { called++; return nil }).
			OnPostSerialize(func(obj any) error { return nil }).
			OnPostDeserialize(func(obj any) error { return nil }),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)
	s.True(cm.UsesExpression)
	s.Len(cm.PreSerialize, 1)
	s.Len(cm.PostSerialize, 1)
	s.Len(cm.PostDeserialize, 1)

	s.NoError(cm.PreSerialize[0](nil))
	s.Equal(1, called)
}

func (s *MetadataSuite) TestVersionRanges() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Order", order{}).
			Property("ID", WithSince("1.2.0"), WithUntil("2.0.0")),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)
	p := cm.FindProperty("ID")
	s.Equal("1.2.0", p.SinceVersion.String())
	s.Equal("2.0.0", p.UntilVersion.String())
}

func (s *MetadataSuite) TestGroupsAndReadOnly() {
	reg := NewRegistry()
	err := reg.Register(
		NewClass("Order", order{}).
			Property("ID", WithGroups("public", "admin"), WithReadOnly()),
	)
	s.Require().NoError(err)

	cm, err := reg.MetadataFor("Order")
	s.Require().NoError(err)
	p := cm.FindProperty("ID")
	s.Equal([]string{"public", "admin"}, p.Groups)
	s.True(p.ReadOnly)
}

func TestMetadata(t *testing.T) {
	suite.Run(t, new(MetadataSuite))
}
