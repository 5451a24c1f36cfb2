package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/httpx"
)

func TestCapable(t *testing.T) {
	assert.True(t, Capable(BeforeFunc(func(*httpx.Request) (*httpx.Response, error) { return nil, nil })))
	assert.True(t, Capable(AfterFunc(func(*httpx.Request, *httpx.Response) (*httpx.Response, bool, error) { return nil, false, nil })))
	assert.True(t, Capable(Both(nil, nil)))
	assert.False(t, Capable("not a middleware"))
	assert.False(t, Capable(nil))
}

func TestPairNilPhasesAreNoops(t *testing.T) {
	p := Both(nil, nil)
	req := httpx.NewRequest(httpx.MethodGet, "/")
	resp, err := p.Before(req)
	require.NoError(t, err)
	assert.Nil(t, resp)

	next, final, err := p.After(req, httpx.NewResponse("x"))
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.False(t, final)
}
