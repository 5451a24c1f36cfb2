package httpx

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/valyala/fasthttp"

	"routecore/pkg/logger"
)

// FastHTTPAdapter adapts a HandlerFunc into a fasthttp.RequestHandler.
// Request.Ctx is cancelled once the response body has been written, so a
// streaming body still sees a live context.
func FastHTTPAdapter(h HandlerFunc) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		method, err := ParseMethod(string(ctx.Method()))
		if err != nil {
			writeFastHTTP(ctx, JSONError(http.StatusMethodNotAllowed, "method not allowed"), func() {})
			return
		}

		cctx, cancel := context.WithCancel(context.Background())
		req := FromFastHTTP(ctx, method)
		req.Ctx = cctx
		writeFastHTTP(ctx, h(req), cancel)
	}
}

// FromFastHTTP copies everything the pipeline needs out of ctx.
func FromFastHTTP(ctx *fasthttp.RequestCtx, method Method) *Request {
	hdr := make(http.Header)
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		key := http.CanonicalHeaderKey(string(k))
		hdr[key] = append(hdr[key], string(v))
	})

	query := url.Values{}
	ctx.QueryArgs().VisitAll(func(k, v []byte) {
		query.Add(string(k), string(v))
	})

	form := url.Values{}
	ctx.PostArgs().VisitAll(func(k, v []byte) {
		form.Add(string(k), string(v))
	})

	cookies := map[string]string{}
	ctx.Request.Header.VisitAllCookie(func(k, v []byte) {
		cookies[string(k)] = string(v)
	})

	var files []FileHeader
	if mf, err := ctx.MultipartForm(); err == nil && mf != nil {
		for field, list := range mf.Value {
			for _, v := range list {
				form.Add(field, v)
			}
		}
		for field, list := range mf.File {
			for _, fh := range list {
				files = append(files, FileHeader{
					Field:       field,
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
				})
			}
		}
	}

	body := append([]byte(nil), ctx.PostBody()...)

	return &Request{
		Ctx:     context.Background(),
		Method:  method,
		Path:    string(ctx.Path()),
		Query:   query,
		Form:    form,
		Cookies: cookies,
		Header:  hdr,
		Files:   files,
		Body:    body,
		Params:  map[string]string{},
		IP:      ctx.RemoteIP().String(),
		Context: NewContext(),
		Raw:     ctx,
	}
}

// writeFastHTTP sets the response on ctx. done runs once the body has been
// written, followed by the post-send callbacks.
func writeFastHTTP(ctx *fasthttp.RequestCtx, resp *Response, done func()) {
	if resp == nil {
		resp = JSONError(http.StatusInternalServerError, "empty response")
	}
	ctx.SetStatusCode(resp.StatusCode())
	for _, name := range resp.HeaderNames() {
		v, _ := resp.Header(name)
		ctx.Response.Header.Set(name, v)
	}

	callbacks := resp.Callbacks()
	switch {
	case resp.Stream != nil:
		stream := resp.Stream
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer done()
			err := stream.Drain(func(chunk string) bool {
				if _, err := w.WriteString(chunk); err != nil {
					return false
				}
				return w.Flush() == nil
			})
			if err != nil {
				logger.Error("response_stream_failed", "error", err)
			}
			if err := w.Flush(); err != nil {
				logger.Warn("response_flush_failed", "error", err)
			}
			RunCallbacks(callbacks)
		})
	case len(callbacks) > 0:
		// fasthttp closes the body reader after writing it, which keeps
		// Content-Length and still runs the callbacks post-send.
		ctx.Response.SetBodyStream(&sentBody{
			Reader: strings.NewReader(resp.Body),
			onClose: func() {
				done()
				RunCallbacks(callbacks)
			},
		}, len(resp.Body))
	default:
		ctx.SetBodyString(resp.Body)
		done()
	}
}

type sentBody struct {
	*strings.Reader
	once    sync.Once
	onClose func()
}

func (b *sentBody) Close() error {
	b.once.Do(b.onClose)
	return nil
}
