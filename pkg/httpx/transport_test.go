package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func echoHandler(t *testing.T) HandlerFunc {
	return func(req *Request) *Response {
		r := NewResponse("hello " + req.Get("name") + " " + req.Cookies["sid"] + " " + string(req.Body))
		r.SetHeader("x-method", req.Method.String())
		return r
	}
}

func TestNetHTTPAdapter(t *testing.T) {
	srv := httptest.NewServer(NetHTTPAdapter(echoHandler(t), 0))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/echo?name=John", strings.NewReader("body"))
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "s1"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello John s1 body", string(b))
	assert.Equal(t, "POST", resp.Header.Get("X-Method"))
}

func TestNetHTTPAdapterRejectsUnknownMethod(t *testing.T) {
	h := NetHTTPAdapter(func(*Request) *Response { return NewResponse("never") }, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("TRACE", "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNetHTTPAdapterStreamsAndRunsCallbacks(t *testing.T) {
	done := make(chan struct{})
	h := NetHTTPAdapter(func(*Request) *Response {
		r := NewStreamResponse(StreamOf("a", "b"))
		r.OnSent(func() { close(done) })
		return r
	}, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "ab", rec.Body.String())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("post-send callback did not run")
	}
}

func TestFastHTTPAdapter(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("PUT")
	ctx.Request.SetRequestURI("/echo?name=Jane")
	ctx.Request.Header.SetCookie("sid", "s2")
	ctx.Request.SetBodyString("payload")

	FastHTTPAdapter(echoHandler(t))(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "hello Jane s2 payload", string(ctx.Response.Body()))
	assert.Equal(t, "PUT", string(ctx.Response.Header.Peek("X-Method")))
}

func TestFastHTTPAdapterCallbacksAfterBody(t *testing.T) {
	done := make(chan struct{})
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/")

	FastHTTPAdapter(func(*Request) *Response {
		r := NewResponse("full body")
		r.OnSent(func() { close(done) })
		return r
	})(&ctx)

	assert.Equal(t, "full body", string(ctx.Response.Body()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("post-send callback did not run")
	}
}

func TestRunCallbacksRecoversPanics(t *testing.T) {
	done := make(chan struct{})
	RunCallbacks([]func(){
		func() { panic("boom") },
		func() { close(done) },
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second callback did not run")
	}
}

func TestNetHTTPAdapterRejectsOversizedBody(t *testing.T) {
	called := false
	h := NetHTTPAdapter(func(*Request) *Response {
		called = true
		return NewResponse("ok")
	}, 10)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 10))))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFromNetHTTPBodyLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789!"))
	_, err := FromNetHTTP(r, MethodPost, 10)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req, err := FromNetHTTP(r, MethodPost, 10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(req.Body))
}

func TestFastHTTPAdapterKeepsContentLengthWithCallbacks(t *testing.T) {
	done := make(chan struct{})
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/")

	FastHTTPAdapter(func(*Request) *Response {
		r := NewResponse("sized body")
		r.OnSent(func() { close(done) })
		return r
	})(&ctx)

	assert.Equal(t, len("sized body"), ctx.Response.Header.ContentLength())
	select {
	case <-done:
		t.Fatal("callback ran before the body was written")
	default:
	}

	assert.Equal(t, "sized body", string(ctx.Response.Body()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("post-send callback did not run")
	}
}

func TestFastHTTPAdapterContextLiveWhileStreaming(t *testing.T) {
	var reqCtx context.Context
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/")

	FastHTTPAdapter(func(req *Request) *Response {
		reqCtx = req.Ctx
		return NewStreamResponse(NewStream(func(yield func(string) bool) {
			for range 2 {
				chunk := "live"
				if req.Ctx.Err() != nil {
					chunk = "cancelled"
				}
				if !yield(chunk) {
					return
				}
			}
		}))
	})(&ctx)

	assert.Equal(t, "livelive", string(ctx.Response.Body()))
	assert.ErrorIs(t, reqCtx.Err(), context.Canceled)
}
