package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_DispatchesTypedBody(t *testing.T) {
	r := NewRouter()
	var got string
	Register(r, EventLogin, func(_ context.Context, cc *ConnContext, name string) error {
		got = string(cc.ClientID) + ":" + name
		return nil
	})

	err := r.dispatch(context.Background(), &ConnContext{ClientID: "c1"},
		Envelope{Event: EventLogin, Body: json.RawMessage(`"alice"`)})
	require.NoError(t, err)
	assert.Equal(t, "c1:alice", got)
}

func TestRouter_DecodeErrorIsReturned(t *testing.T) {
	r := NewRouter()
	Register(r, EventLogin, func(context.Context, *ConnContext, string) error {
		t.Fatal("handler must not run")
		return nil
	})

	err := r.dispatch(context.Background(), &ConnContext{},
		Envelope{Event: EventLogin, Body: json.RawMessage(`{"not":"a string"}`)})
	assert.Error(t, err)
}

func TestRouter_UnknownEvent(t *testing.T) {
	err := NewRouter().dispatch(context.Background(), &ConnContext{}, Envelope{Event: "nope"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestRegister_EmptyEventPanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(NewRouter(), "", func(context.Context, *ConnContext, string) error { return nil })
	})
}
