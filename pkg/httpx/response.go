package httpx

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Response is what the pipeline hands back to the transport. Exactly one of
// Body or Stream is sent; Stream wins when set.
type Response struct {
	Body   string
	Stream *Stream
	Status int

	headers   map[string]string
	callbacks []func()
}

// NewResponse returns a 200 response with a string body.
func NewResponse(body string) *Response {
	return &Response{Body: body, Status: http.StatusOK}
}

// NewStreamResponse returns a 200 response whose body is produced lazily.
func NewStreamResponse(s *Stream) *Response {
	return &Response{Stream: s, Status: http.StatusOK}
}

// JSON encodes v as the body and sets the JSON content type. A string is
// assumed to be encoded already.
func JSON(v any, status int) (*Response, error) {
	var body string
	switch t := v.(type) {
	case string:
		body = t
	case []byte:
		body = string(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		body = string(b)
	}
	r := &Response{Body: body, Status: status}
	r.SetHeader("Content-Type", ContentTypeJSON)
	return r, nil
}

// JSONError writes {"error": msg} with status.
func JSONError(status int, msg string) *Response {
	r, err := JSON(map[string]string{"error": msg}, status)
	if err != nil {
		r = &Response{Body: `{"error":"internal error"}`, Status: http.StatusInternalServerError}
		r.SetHeader("Content-Type", ContentTypeJSON)
	}
	return r
}

// StatusCode returns Status, treating zero as 200.
func (r *Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// SetHeader stores value under the normalized name.
func (r *Response) SetHeader(name, value string) *Response {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[NormalizeHeaderName(name)] = value
	return r
}

// PutHeader sets the header, or removes it when value is nil.
func (r *Response) PutHeader(name string, value *string) *Response {
	if value == nil {
		return r.RemoveHeader(name)
	}
	return r.SetHeader(name, *value)
}

func (r *Response) RemoveHeader(name string) *Response {
	delete(r.headers, NormalizeHeaderName(name))
	return r
}

func (r *Response) Header(name string) (string, bool) {
	v, ok := r.headers[NormalizeHeaderName(name)]
	return v, ok
}

// Headers returns a copy of the header map.
func (r *Response) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// HeaderNames returns the stored names sorted.
func (r *Response) HeaderNames() []string {
	out := make([]string, 0, len(r.headers))
	for k := range r.headers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// OnSent registers fn to run after the response has been delivered.
func (r *Response) OnSent(fn func()) *Response {
	if fn != nil {
		r.callbacks = append(r.callbacks, fn)
	}
	return r
}

// Callbacks returns the post-send callbacks in registration order.
func (r *Response) Callbacks() []func() {
	return append([]func(){}, r.callbacks...)
}

// Text returns the body as a string, draining Stream if set.
func (r *Response) Text() (string, error) {
	if r.Stream != nil {
		return r.Stream.String()
	}
	return r.Body, nil
}

// NormalizeHeaderName lowercases name and upper-cases the first letter of
// every dash separated word: "content-TYPE" becomes "Content-Type".
func NormalizeHeaderName(name string) string {
	b := []byte(strings.ToLower(name))
	upper := true
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(b)
}
