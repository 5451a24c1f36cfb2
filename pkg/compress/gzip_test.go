package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/httpx"
	"routecore/pkg/middleware"
	"routecore/pkg/registry"
	"routecore/pkg/routing"
)

var (
	_ middleware.After         = (*Gzip)(nil)
	_ routing.MiddlewareSource = (*Gzip)(nil)
)

func gunzip(t *testing.T, s string) string {
	t.Helper()
	r, err := gzip.NewReader(strings.NewReader(s))
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestGzipCompressesLargeBodies(t *testing.T) {
	g := New(10)
	req := httpx.NewRequest(httpx.MethodGet, "/")
	req.Header.Set("Accept-Encoding", "br, gzip;q=0.8")
	body := strings.Repeat("hello ", 50)
	resp := httpx.NewResponse(body)
	resp.SetHeader("Vary", "Origin")

	next, finalize, err := g.After(req, resp)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.True(t, finalize)
	enc, _ := resp.Header("Content-Encoding")
	assert.Equal(t, "gzip", enc)
	vary, _ := resp.Header("Vary")
	assert.Equal(t, "Origin, Accept-Encoding", vary)
	assert.Equal(t, body, gunzip(t, resp.Body))
}

func TestGzipSkips(t *testing.T) {
	cases := []struct {
		name   string
		accept string
		resp   func() *httpx.Response
	}{
		{"no accept", "", func() *httpx.Response { return httpx.NewResponse(strings.Repeat("x", 100)) }},
		{"refused", "gzip;q=0", func() *httpx.Response { return httpx.NewResponse(strings.Repeat("x", 100)) }},
		{"small", "gzip", func() *httpx.Response { return httpx.NewResponse("tiny") }},
		{"stream", "gzip", func() *httpx.Response {
			return httpx.NewStreamResponse(httpx.StreamOf(strings.Repeat("x", 100)))
		}},
		{"encoded", "gzip", func() *httpx.Response {
			return httpx.NewResponse(strings.Repeat("x", 100)).SetHeader("Content-Encoding", "br")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httpx.NewRequest(httpx.MethodGet, "/")
			req.Header.Set("Accept-Encoding", tc.accept)
			resp := tc.resp()
			before := resp.Body
			_, finalize, err := New(10).After(req, resp)
			require.NoError(t, err)
			assert.False(t, finalize)
			assert.Equal(t, before, resp.Body)
		})
	}
}

type suffix struct{}

func (suffix) After(_ *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	resp.Body += "!"
	return nil, false, nil
}

func TestGzipRunsLastAsSource(t *testing.T) {
	reg := registry.New().
		HandleBare("Test::big", func() (any, error) { return strings.Repeat("a", 64), nil }).
		Middleware("Test::suffix", func() any { return suffix{} })
	ep := routing.NewEndpoint(reg, "Test::big", "Test::suffix")

	req := httpx.NewRequest(httpx.MethodGet, "/")
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := ep.Run(req, nil, New(16))
	require.Error(t, err)
	assert.Nil(t, resp)

	resp, err = ep.Run(req, routing.NormalizerFunc(func(v any) (*httpx.Response, error) {
		return httpx.NewResponse(v.(string)), nil
	}), New(16))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 64)+"!", gunzip(t, resp.Body))
	assert.True(t, bytes.HasPrefix([]byte(resp.Body), []byte{0x1f, 0x8b}))
}
