// Package compress gzips response bodies as the last step of the after-chain.
package compress

import (
	"bytes"
	"iter"
	"strings"

	"github.com/klauspost/compress/gzip"

	"routecore/pkg/httpx"
	"routecore/pkg/logger"
	"routecore/pkg/routing"
)

// Gzip compresses buffered bodies of at least MinBytes when the client
// accepts gzip. It finalizes the after-chain once it has compressed, so
// nothing downstream can touch the encoded body.
type Gzip struct {
	MinBytes int
	Level    int
}

// New returns a Gzip middleware using the default compression level.
func New(minBytes int) *Gzip {
	return &Gzip{MinBytes: minBytes, Level: gzip.DefaultCompression}
}

// Middleware appends g to every endpoint's middleware, making g a
// routing.MiddlewareSource that always runs last.
func (g *Gzip) Middleware(*routing.Endpoint) iter.Seq[any] {
	return func(yield func(any) bool) {
		yield(g)
	}
}

func (g *Gzip) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	if resp.Stream != nil || len(resp.Body) < g.MinBytes || !acceptsGzip(req) {
		return nil, false, nil
	}
	if enc, ok := resp.Header("Content-Encoding"); ok && enc != "" {
		return nil, false, nil
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.Level)
	if err != nil {
		return nil, false, err
	}
	if _, err := w.Write([]byte(resp.Body)); err != nil {
		return nil, false, err
	}
	if err := w.Close(); err != nil {
		return nil, false, err
	}
	logger.Debug("response_compressed", "path", req.Path, "from", len(resp.Body), "to", buf.Len())

	resp.Body = buf.String()
	resp.SetHeader("Content-Encoding", "gzip")
	resp.SetHeader("Vary", addVary(resp, "Accept-Encoding"))
	return nil, true, nil
}

func acceptsGzip(req *httpx.Request) bool {
	for _, part := range strings.Split(req.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

func addVary(resp *httpx.Response, value string) string {
	cur, ok := resp.Header("Vary")
	if !ok || cur == "" {
		return value
	}
	for _, v := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return cur
		}
	}
	return cur + ", " + value
}
