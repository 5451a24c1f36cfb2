package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/httpx"
)

func buildTable(t *testing.T) *Hashmap {
	t.Helper()
	reg := newTestRegistry()
	b := NewIndexBuilder()
	require.NoError(t, b.AddEndpoint(httpx.MethodGet, "/", NewEndpoint(reg, "Test::handler")))
	require.NoError(t, b.AddEndpoint(httpx.MethodGet, "/hello-world", NewEndpoint(reg, "Test::hello")))
	require.NoError(t, b.AddEndpoint(httpx.MethodPost, "/hello-world", NewEndpoint(reg, "Test::hello", "Test::update")))
	require.NoError(t, b.AddEndpoint(httpx.MethodGet, "/exception", NewEndpoint(reg, "Test::fail")))
	table := NewHashmap(reg)
	require.NoError(t, table.Init(b.Make()))
	return table
}

func TestHashmapLookup(t *testing.T) {
	table := buildTable(t)

	res, err := table.GetRoute(httpx.MethodGet, "/")
	require.NoError(t, err)
	assert.Empty(t, res.Params)
	resp, err := res.Endpoint.Run(httpx.NewRequest(httpx.MethodGet, "/"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, handlerSays, resp.Body)

	res, err = table.GetRoute(httpx.MethodPost, "/hello-world")
	require.NoError(t, err)
	s, err := res.Endpoint.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "Test::hello,Test::update", s)
}

func TestHashmapException(t *testing.T) {
	table := buildTable(t)
	res, err := table.GetRoute(httpx.MethodGet, "/exception")
	require.NoError(t, err)
	_, err = res.Endpoint.Run(httpx.NewRequest(httpx.MethodGet, "/exception"), nil, nil)
	assert.ErrorIs(t, err, errHandler)
}

func TestHashmapNotFound(t *testing.T) {
	table := buildTable(t)
	cases := []struct {
		method httpx.Method
		path   string
	}{
		{httpx.MethodGet, "/missing"},
		{httpx.MethodPut, "/hello-world"},
		{httpx.MethodGet, "/hello-world/"},
		{httpx.MethodGet, "/HELLO-WORLD"},
		{httpx.MethodDelete, "/"},
	}
	for _, c := range cases {
		_, err := table.GetRoute(c.method, c.path)
		assert.ErrorIs(t, err, ErrNotFound, "%s %s", c.method, c.path)
	}
}

func TestHashmapInitOnce(t *testing.T) {
	table := NewHashmap(newTestRegistry())
	assert.False(t, table.Ready())
	_, err := table.GetRoute(httpx.MethodGet, "/")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Nil(t, table.Index())

	require.NoError(t, table.Init(Index{}))
	assert.True(t, table.Ready())
	assert.ErrorIs(t, table.Init(Index{}), ErrAlreadyInitialized)
}

func TestHashmapEndpointsAreReused(t *testing.T) {
	table := buildTable(t)
	a, err := table.GetRoute(httpx.MethodGet, "/")
	require.NoError(t, err)
	b, err := table.GetRoute(httpx.MethodGet, "/")
	require.NoError(t, err)
	assert.Same(t, a.Endpoint, b.Endpoint)
}

func TestHashmapIsolatedFromSourceIndex(t *testing.T) {
	reg := newTestRegistry()
	idx := Index{httpx.MethodGet: {"/": "Test::handler"}}
	table := NewHashmap(reg)
	require.NoError(t, table.Init(idx))

	idx[httpx.MethodGet]["/late"] = "Test::handler"
	_, err := table.GetRoute(httpx.MethodGet, "/late")
	assert.ErrorIs(t, err, ErrNotFound)
}
