package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/registry"
)

func TestSerializeRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	ep := NewEndpoint(reg, "Test::handler", "Test::update", "Test::block")

	s, err := ep.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "Test::handler,Test::update,Test::block", s)

	back := Deserialize(reg, s)
	assert.Equal(t, registry.Ref("Test::handler"), back.Handler())
	assert.Equal(t, []registry.Ref{"Test::update", "Test::block"}, back.Middleware())

	again, err := back.Serialize()
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestDeserializeDoesNotValidate(t *testing.T) {
	reg := newTestRegistry()
	ep := Deserialize(reg, "Nope::missing,Also::missing")
	assert.Equal(t, registry.Ref("Nope::missing"), ep.Handler())
	assert.ErrorIs(t, ep.Validate(false), ErrInvalidHandler)
}

func TestValidate(t *testing.T) {
	reg := newTestRegistry()

	assert.NoError(t, NewEndpoint(reg, "Test::handler", "Test::update").Validate(true))

	err := NewEndpoint(reg, "Test::missing").Validate(false)
	assert.ErrorIs(t, err, ErrInvalidHandler)
	assert.Contains(t, err.Error(), "Test::missing")

	err = NewEndpoint(reg, "Test::handler", "Test::nope").Validate(false)
	assert.ErrorIs(t, err, ErrInvalidMiddleware)

	err = NewEndpoint(reg, "bad ref").Validate(false)
	assert.ErrorIs(t, err, ErrInvalidHandler)

	// capability is only checked in deep mode
	broken := NewEndpoint(reg, "Test::handler", "Test::broken")
	assert.NoError(t, broken.Validate(false))
	err = broken.Validate(true)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Test::broken", verr.Ref)
	assert.ErrorIs(t, err, ErrInvalidMiddleware)

	_, err = broken.Serialize()
	assert.ErrorIs(t, err, ErrInvalidMiddleware)
}

func TestResolveMiddlewareMemoizesAndSkipsIncapable(t *testing.T) {
	reg := newTestRegistry()
	calls := 0
	reg.Middleware("Test::counted", func() any {
		calls++
		return appendAfter{key: "x"}
	})
	ep := NewEndpoint(reg, "Test::handler", "Test::counted", "Test::broken", "Test::block")

	first := ep.ResolveMiddleware(nil)
	second := ep.ResolveMiddleware(nil)
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestResolveMiddlewareAppendsSource(t *testing.T) {
	reg := newTestRegistry()
	reg.Annotate("Test::handler", func() any { return blockBefore{key: "a"} }, func() any { return notMiddleware{} })
	ep := NewEndpoint(reg, "Test::handler", "Test::update")

	got := ep.ResolveMiddleware(Annotations{Registry: reg})
	require.Len(t, got, 2)
	assert.IsType(t, appendAfter{}, got[0])
	assert.IsType(t, blockBefore{}, got[1])

	// the source does not leak into the memo
	assert.Len(t, ep.ResolveMiddleware(nil), 1)
}
