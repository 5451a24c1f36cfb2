package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/httpx"
)

func TestRefValidate(t *testing.T) {
	good := []Ref{"Handlers::Root", "App::Http::Hello::get", NewRef("pkg.Owner", "Member")}
	for _, r := range good {
		assert.NoError(t, r.Validate(), r)
	}
	bad := []Ref{"", "Handlers", "::Root", "Handlers::", "A::b,C::d", "  ::x"}
	for _, r := range bad {
		assert.ErrorIs(t, r.Validate(), ErrInvalidRef, r)
	}
}

func TestRefParts(t *testing.T) {
	r := Ref("App::Http::Hello::get")
	assert.Equal(t, "App::Http::Hello", r.Owner())
	assert.Equal(t, "get", r.Member())

	parsed, err := ParseRef("  Handlers::Root ")
	require.NoError(t, err)
	assert.Equal(t, Ref("Handlers::Root"), parsed)
}

func TestRegistryHandlerShapes(t *testing.T) {
	reg := New()
	reg.Handle("H::withReq", func(req *httpx.Request) (any, error) { return "hi " + req.Get("n"), nil })
	reg.HandleBare("H::bare", func() (any, error) { return "bare", nil })

	req := httpx.NewRequest(httpx.MethodGet, "/")
	req.Query.Set("n", "x")

	h, ok := reg.LookupHandler("H::withReq")
	require.True(t, ok)
	assert.True(t, h.TakesRequest())
	out, err := h.Call(req)
	require.NoError(t, err)
	assert.Equal(t, "hi x", out)

	h, ok = reg.LookupHandler("H::bare")
	require.True(t, ok)
	assert.False(t, h.TakesRequest())
	out, err = h.Call(req)
	require.NoError(t, err)
	assert.Equal(t, "bare", out)

	_, ok = reg.LookupHandler("H::missing")
	assert.False(t, ok)
	assert.Equal(t, []Ref{"H::bare", "H::withReq"}, reg.HandlerRefs())
}

func TestRegistryPanicsOnBadInput(t *testing.T) {
	reg := New()
	assert.Panics(t, func() { reg.Handle("bad", func(*httpx.Request) (any, error) { return nil, nil }) })
	assert.Panics(t, func() { reg.Handle("H::nil", nil) })
	assert.Panics(t, func() { reg.Middleware("M::nil", nil) })
	assert.Panics(t, func() { reg.Annotate("H::x", nil) })
}

func TestAnnotationsAppend(t *testing.T) {
	reg := New()
	reg.Annotate("H::x", func() any { return 1 })
	reg.Annotate("H::x", func() any { return 2 })
	got := reg.Annotations("H::x")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0]())
	assert.Equal(t, 2, got[1]())
	assert.Empty(t, reg.Annotations("H::other"))
}
