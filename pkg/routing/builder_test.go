package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/httpx"
)

func TestBuilderRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	routes := []struct {
		method httpx.Method
		path   string
		ep     *Endpoint
	}{
		{httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler")},
		{httpx.MethodPatch, "/a/b.c_d-e", NewEndpoint(reg, "Test::text")},
		{httpx.MethodHead, "/users/:id;v=1", NewEndpoint(reg, "Test::hello", "Test::block", "Test::update")},
		{httpx.MethodDelete, "/x%20y/@me/(1)!*'$+,&=", NewEndpoint(reg, "Test::fail", "Test::replace")},
	}
	b := NewIndexBuilder()
	for _, r := range routes {
		require.NoError(t, b.AddEndpoint(r.method, r.path, r.ep))
	}
	table := NewHashmap(reg)
	require.NoError(t, table.Init(b.Make()))

	for _, r := range routes {
		res, err := table.GetRoute(r.method, r.path)
		require.NoError(t, err, r.path)
		want, _ := r.ep.Serialize()
		got, err := res.Endpoint.Serialize()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBuilderRejectsPaths(t *testing.T) {
	reg := newTestRegistry()
	b := NewIndexBuilder()
	for _, p := range []string{"", "hello", "/with space", "/tilde~", "/q?x=1", "/frag#a", "/uni/é", "/back\\slash"} {
		err := b.AddEndpoint(httpx.MethodGet, p, NewEndpoint(reg, "Test::handler"))
		assert.ErrorIs(t, err, ErrNoAllowedRoutePath, p)
	}
}

func TestBuilderDuplicates(t *testing.T) {
	reg := newTestRegistry()
	b := NewIndexBuilder()
	require.NoError(t, b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler", "Test::update")))
	// identical endpoint is idempotent
	require.NoError(t, b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler", "Test::update")))
	// same path under another method is a different key
	require.NoError(t, b.AddEndpoint(httpx.MethodPost, "/", NewEndpoint(reg, "Test::hello")))

	err := b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler"))
	assert.ErrorIs(t, err, ErrDuplicateRoutePath)

	idx := b.Make()
	assert.Equal(t, "Test::handler,Test::update", idx[httpx.MethodGet]["/"])
	assert.Equal(t, 2, idx.Len())
}

func TestBuilderPropagatesValidation(t *testing.T) {
	reg := newTestRegistry()
	b := NewIndexBuilder()
	err := b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler", "Test::broken"))
	assert.ErrorIs(t, err, ErrInvalidMiddleware)
	err = b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::ghost"))
	assert.ErrorIs(t, err, ErrInvalidHandler)
	assert.Zero(t, b.Make().Len())
}

func TestBuilderSingleUse(t *testing.T) {
	reg := newTestRegistry()
	b := NewIndexBuilder()
	_ = b.Make()
	err := b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler"))
	assert.ErrorIs(t, err, ErrBuilderConsumed)
}

func TestBuilderRejectsUnknownMethod(t *testing.T) {
	err := NewIndexBuilder().AddEndpoint("TRACE", "/", NewEndpoint(newTestRegistry(), "Test::handler"))
	assert.ErrorIs(t, err, httpx.ErrUnsupportedMethod)
}

func TestIndexEntriesAndCheck(t *testing.T) {
	idx := Index{
		httpx.MethodPost: {"/b": "H::b"},
		httpx.MethodGet:  {"/z": "H::z", "/a": "H::a"},
	}
	require.NoError(t, idx.Check())
	entries := idx.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Method: httpx.MethodGet, Path: "/a", Endpoint: "H::a"}, entries[0])
	assert.Equal(t, "/z", entries[1].Path)
	assert.Equal(t, httpx.MethodPost, entries[2].Method)

	assert.ErrorIs(t, Index{"TRACE": {"/": "H::a"}}.Check(), httpx.ErrUnsupportedMethod)
	assert.ErrorIs(t, Index{httpx.MethodGet: {"nope": "H::a"}}.Check(), ErrNoAllowedRoutePath)
	assert.ErrorIs(t, Index{httpx.MethodGet: {"/": ""}}.Check(), ErrInvalidHandler)
}
