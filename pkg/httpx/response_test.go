package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeaderName(t *testing.T) {
	cases := map[string]string{
		"content-type":    "Content-Type",
		"CONTENT-TYPE":    "Content-Type",
		"x-request-id":    "X-Request-Id",
		"etag":            "Etag",
		"x--double":       "X--Double",
		"x_custom-header": "X_custom-Header",
		"1-abc":           "1-Abc",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeaderName(in), in)
	}
}

func TestResponseHeaderRemovalWithNil(t *testing.T) {
	r := NewResponse("ok")
	ct := "text/html"
	r.PutHeader("content-type", &ct)
	v, ok := r.Header("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "text/html", v)
	assert.Equal(t, []string{"Content-Type"}, r.HeaderNames())

	r.PutHeader("CONTENT-TYPE", nil)
	_, ok = r.Header("content-type")
	assert.False(t, ok)
	assert.Empty(t, r.Headers())

	// removing an absent header is a no-op
	r.PutHeader("x-missing", nil)
	assert.Empty(t, r.Headers())
}

func TestResponseDefaults(t *testing.T) {
	r := &Response{}
	assert.Equal(t, http.StatusOK, r.StatusCode())
	assert.Equal(t, http.StatusOK, NewResponse("").Status)
	r.Status = http.StatusTeapot
	assert.Equal(t, http.StatusTeapot, r.StatusCode())
}

func TestResponseCallbacksKeepOrder(t *testing.T) {
	var order []int
	r := NewResponse("")
	r.OnSent(func() { order = append(order, 1) }).OnSent(nil).OnSent(func() { order = append(order, 2) })
	for _, cb := range r.Callbacks() {
		cb()
	}
	assert.Equal(t, []int{1, 2}, order)
}

func TestJSON(t *testing.T) {
	r, err := JSON(map[string]any{"a": 1}, http.StatusCreated)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, r.Body)
	assert.Equal(t, http.StatusCreated, r.Status)
	ct, _ := r.Header("content-type")
	assert.Equal(t, ContentTypeJSON, ct)

	r, err = JSON(`{"pre":"encoded"}`, http.StatusOK)
	require.NoError(t, err)
	assert.Equal(t, `{"pre":"encoded"}`, r.Body)

	_, err = JSON(make(chan int), http.StatusOK)
	assert.Error(t, err)
}

func TestJSONError(t *testing.T) {
	r := JSONError(http.StatusNotFound, "not found")
	assert.Equal(t, `{"error":"not found"}`, r.Body)
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestStreamIsSinglePass(t *testing.T) {
	s := StreamOf("a", "b", "c")
	out, err := s.String()
	require.NoError(t, err)
	assert.Equal(t, "abc", out)
	assert.True(t, s.Consumed())

	_, err = s.String()
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestResponseTextDrainsStream(t *testing.T) {
	r := NewStreamResponse(StreamOf("hello", " ", "world"))
	txt, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello world", txt)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("get")
	require.NoError(t, err)
	assert.Equal(t, MethodGet, m)

	for _, bad := range []string{"CONNECT", "TRACE", "", "FETCH"} {
		_, err := ParseMethod(bad)
		assert.ErrorIs(t, err, ErrUnsupportedMethod, bad)
	}
}

func TestContextContainer(t *testing.T) {
	c := NewContext()
	c.Set("user", "john")
	c.Set("n", 3)
	assert.Equal(t, "john", c.String("user"))
	assert.Equal(t, "", c.String("n"))
	assert.Equal(t, []string{"n", "user"}, c.Keys())
	c.Delete("n")
	_, ok := c.Get("n")
	assert.False(t, ok)
}

func TestWithParamsSharesContext(t *testing.T) {
	r := NewRequest(MethodGet, "/users/7")
	r2 := r.WithParams(map[string]string{"id": "7"})
	r2.Context.Set("seen", true)
	_, ok := r.Context.Get("seen")
	assert.True(t, ok)
	assert.Equal(t, "", r.Param("id"))
	assert.Equal(t, "7", r2.Param("id"))
}
