package httpx

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
)

// ErrBodyTooLarge reports a request body over the configured limit.
var ErrBodyTooLarge = errors.New("request body too large")

// NetHTTPAdapter adapts a HandlerFunc into a standard net/http handler.
// Bodies larger than maxBody are rejected with 413; zero means no limit.
func NetHTTPAdapter(h HandlerFunc, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, err := ParseMethod(r.Method)
		if err != nil {
			writeNetHTTP(w, JSONError(http.StatusMethodNotAllowed, "method not allowed"))
			return
		}

		if maxBody > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		req, err := FromNetHTTP(r, method, 0)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || errors.Is(err, ErrBodyTooLarge) {
				writeNetHTTP(w, JSONError(http.StatusRequestEntityTooLarge, "request body too large"))
				return
			}
			writeNetHTTP(w, JSONError(http.StatusBadRequest, "invalid request body"))
			return
		}
		writeNetHTTP(w, h(req))
	})
}

// FromNetHTTP reads the body and form values out of r. A body longer than
// maxBody fails with ErrBodyTooLarge; zero means no limit.
func FromNetHTTP(r *http.Request, method Method, maxBody int64) (*Request, error) {
	var reader io.Reader = r.Body
	if r.Body == nil {
		reader = http.NoBody
	} else if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		_ = r.Body.Close()
		return nil, ErrBodyTooLarge
	}
	if r.Body != nil {
		_ = r.Body.Close()
	}

	form := url.Values{}
	ct := r.Header.Get("Content-Type")
	if len(body) > 0 && ct == "application/x-www-form-urlencoded" {
		if vals, err := url.ParseQuery(string(body)); err == nil {
			form = vals
		}
	}

	cookies := map[string]string{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	ip := r.RemoteAddr
	if h, _, err := net.SplitHostPort(ip); err == nil {
		ip = h
	}

	return &Request{
		Ctx:     r.Context(),
		Method:  method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Form:    form,
		Cookies: cookies,
		Header:  r.Header.Clone(),
		Body:    body,
		Params:  map[string]string{},
		IP:      ip,
		Context: NewContext(),
		Raw:     r,
	}, nil
}

func writeNetHTTP(w http.ResponseWriter, resp *Response) {
	if resp == nil {
		resp = JSONError(http.StatusInternalServerError, "empty response")
	}
	for _, name := range resp.HeaderNames() {
		v, _ := resp.Header(name)
		w.Header().Set(name, v)
	}
	w.WriteHeader(resp.StatusCode())

	flusher, _ := w.(http.Flusher)
	if resp.Stream != nil {
		_ = resp.Stream.Drain(func(chunk string) bool {
			if _, err := io.WriteString(w, chunk); err != nil {
				return false
			}
			if flusher != nil {
				flusher.Flush()
			}
			return true
		})
	} else {
		_, _ = io.WriteString(w, resp.Body)
	}
	if flusher != nil {
		flusher.Flush()
	}
	RunCallbacks(resp.Callbacks())
}
