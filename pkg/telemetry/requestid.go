package telemetry

import (
	"github.com/google/uuid"

	"routecore/pkg/httpx"
)

const (
	RequestIDHeader  = "X-Request-Id"
	ContextRequestID = "telemetry.request_id"
)

// RequestID tags every request with an id, reusing a well-formed incoming
// X-Request-Id, and echoes it on the response.
type RequestID struct{}

func (RequestID) Before(req *httpx.Request) (*httpx.Response, error) {
	id := req.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	if req.Context != nil {
		req.Context.Set(ContextRequestID, id)
	}
	return nil, nil
}

func (RequestID) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	if id := RequestIDOf(req); id != "" {
		resp.SetHeader(RequestIDHeader, id)
	}
	return nil, false, nil
}

// RequestIDOf returns the id assigned by RequestID, or "".
func RequestIDOf(req *httpx.Request) string {
	if req == nil || req.Context == nil {
		return ""
	}
	return req.Context.String(ContextRequestID)
}
