package response

import (
	"iter"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/httpx"
)

func TestDefaultPassesResponseThrough(t *testing.T) {
	in := httpx.NewResponse("x")
	out, err := Default{}.Normalize(in)
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestDefaultWrapsText(t *testing.T) {
	out, err := Default{}.Normalize("Hello John")
	require.NoError(t, err)
	assert.Equal(t, "Hello John", out.Body)
	assert.Equal(t, http.StatusOK, out.Status)

	out, err = Default{}.Normalize([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", out.Body)
}

func TestDefaultWrapsStreams(t *testing.T) {
	out, err := Default{}.Normalize(httpx.StreamOf("a", "b"))
	require.NoError(t, err)
	txt, err := out.Text()
	require.NoError(t, err)
	assert.Equal(t, "ab", txt)

	var seq iter.Seq[string] = func(yield func(string) bool) {
		_ = yield("x") && yield("y")
	}
	out, err = Default{}.Normalize(seq)
	require.NoError(t, err)
	txt, err = out.Text()
	require.NoError(t, err)
	assert.Equal(t, "xy", txt)

	out, err = Default{}.Normalize(func(yield func(string) bool) { yield("z") })
	require.NoError(t, err)
	txt, err = out.Text()
	require.NoError(t, err)
	assert.Equal(t, "z", txt)
}

func TestDefaultEncodesStructuredData(t *testing.T) {
	type user struct {
		Name string `json:"name"`
	}
	cases := []struct {
		in   any
		want string
	}{
		{map[string]int{"a": 1}, `{"a":1}`},
		{[]string{"x", "y"}, `["x","y"]`},
		{user{Name: "john"}, `{"name":"john"}`},
		{&user{Name: "jane"}, `{"name":"jane"}`},
	}
	for _, c := range cases {
		out, err := Default{}.Normalize(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, out.Body)
		ct, _ := out.Header("Content-Type")
		assert.Equal(t, httpx.ContentTypeJSON, ct)
	}
}

func TestDefaultRejectsEverythingElse(t *testing.T) {
	var nilResp *httpx.Response
	for _, v := range []any{nil, 42, 3.5, true, nilResp, make(chan int)} {
		_, err := Default{}.Normalize(v)
		assert.ErrorIs(t, err, ErrUnsupported, "%T", v)
	}
}
