package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/serde-garden-go/serde/metadata"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

func TestPlanCompilesPrimitiveProperties(t *testing.T) {
	reg := metadata.NewRegistry()
	assert.NoError(t, reg.Register(
		metadata.NewClass("Account", account{}).
			Property("ID").
			Property("Name").
			Property("Email").
			Property("Peer"),
	))

	cm, err := reg.MetadataFor("Account")
	assert.NoError(t, err)

	cache := NewPlanCache()
	plan := cache.For(cm)
	assert.NotNil(t, plan)
	assert.Equal(t, 3, plan.Steps())

	for _, pm := range cm.Properties {
		kind, ok := plan.Primitive(pm)
		switch pm.Name {
		case "ID":
			assert.True(t, ok)
			assert.Equal(t, types.KindInt, kind)
		case "Name", "Email":
			assert.True(t, ok)
			assert.Equal(t, types.KindString, kind)
		case "Peer":
			assert.False(t, ok)
		}
	}
}

func TestPlanCacheReturnsSamePlan(t *testing.T) {
	reg := metadata.NewRegistry()
	assert.NoError(t, reg.Register(
		metadata.NewClass("Account", account{}).Property("ID"),
	))

	cm, err := reg.MetadataFor("Account")
	assert.NoError(t, err)

	cache := NewPlanCache()
	first := cache.For(cm)
	second := cache.For(cm)
	assert.Same(t, first, second)
}

func TestPlanSkipsExpressionClasses(t *testing.T) {
	reg := metadata.NewRegistry()
	assert.NoError(t, reg.Register(
		metadata.NewClass("Vault", vault{}).
			Property("Token", metadata.WithExcludeIf("hide")).
			Property("Public"),
	))

	cm, err := reg.MetadataFor("Vault")
	assert.NoError(t, err)

	assert.Nil(t, NewPlanCache().For(cm))
}

func TestNilPlanCache(t *testing.T) {
	var cache *PlanCache
	assert.Nil(t, cache.For(&metadata.ClassMetadata{Name: "Any"}))
}
