package event

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/serde/types"
)

type EventSuite struct {
	suite.Suite
}

func (s *EventSuite) TestNopDispatcher() {
	d := NewNopDispatcher()
	s.False(d.HasListeners(PreSerializeName, "Order", "json"))
	s.NoError(d.Dispatch(PreSerializeName, "Order", "json", &PreSerializeEvent{}))
}

func (s *EventSuite) TestHasListeners() {
	r := NewRegistry()
	s.False(r.HasListeners(PreSerializeName, "Order", "json"))

	r.Listen(PreSerializeName, func(payload any) error { return nil }, ForClass("Order"), ForFormat("json"))

	s.True(r.HasListeners(PreSerializeName, "Order", "json"))
	s.False(r.HasListeners(PreSerializeName, "Order", "xml"))
	s.False(r.HasListeners(PreSerializeName, "User", "json"))
	s.False(r.HasListeners(PostSerializeName, "Order", "json"))
}

func (s *EventSuite) TestWildcardListeners() {
	r := NewRegistry()
	r.Listen(PreSerializeName, func(payload any) error { return nil })

	s.True(r.HasListeners(PreSerializeName, "Order", "json"))
	s.True(r.HasListeners(PreSerializeName, "User", "xml"))
}

func (s *EventSuite) TestDispatchOrder() {
	r := NewRegistry()
	var calls []string

	r.Listen(PreSerializeName, func(payload any) error {
		calls = append(calls, "wildcard")
		return nil
	})
	r.Listen(PreSerializeName, func(payload any) error {
		calls = append(calls, "exact")
		return nil
	}, ForClass("Order"), ForFormat("json"))
	r.Listen(PreSerializeName, func(payload any) error {
		calls = append(calls, "class")
		return nil
	}, ForClass("Order"))

	s.NoError(r.Dispatch(PreSerializeName, "Order", "json", &PreSerializeEvent{}))
	s.Equal([]string{"exact", "class", "wildcard"}, calls)
}

func (s *EventSuite) TestDispatchMutatesPayload() {
	r := NewRegistry()
	r.Listen(PreDeserializeName, func(payload any) error {
		ev := payload.(*PreDeserializeEvent)
		ev.Type = types.Named("Dog")
		ev.Data = map[string]any{"name": "Rex"}
		return nil
	}, ForClass("Animal"))

	ev := &PreDeserializeEvent{Type: types.Named("Animal"), Data: nil}
	s.NoError(r.Dispatch(PreDeserializeName, "Animal", "json", ev))
	s.Equal("Dog", ev.Type.Name)
	s.NotNil(ev.Data)
}

func (s *EventSuite) TestDispatchStopsOnError() {
	r := NewRegistry()
	errBoom := errors.New("boom")
	second := false

	r.Listen(PostSerializeName, func(payload any) error { return errBoom }, ForClass("Order"))
	r.Listen(PostSerializeName, func(payload any) error { second = true; return nil })

	s.ErrorIs(r.Dispatch(PostSerializeName, "Order", "json", &PostSerializeEvent{}), errBoom)
	s.False(second)
}

func (s *EventSuite) TestEvents() {
	r := NewRegistry()
	r.Listen(PostDeserializeName, func(payload any) error { return nil })
	r.Listen(PreSerializeName, func(payload any) error { return nil }, ForClass("Order"))
	r.Listen(PreSerializeName, func(payload any) error { return nil }, ForFormat("json"))

	s.Equal([]string{PostDeserializeName, PreSerializeName}, r.Events())
}

func TestEvents(t *testing.T) {
	suite.Run(t, new(EventSuite))
}
