// Package response converts raw handler output into *httpx.Response.
package response

import (
	"errors"
	"fmt"
	"iter"
	"net/http"
	"reflect"

	"routecore/pkg/httpx"
)

var ErrUnsupported = errors.New("response must be structured data, string, stream, or *httpx.Response")

// Default maps handler output as follows: *httpx.Response passes through;
// string, []byte, *httpx.Stream and iter.Seq[string] become a 200 response;
// maps, slices, arrays and structs are encoded as JSON.
type Default struct{}

func (Default) Normalize(v any) (*httpx.Response, error) {
	switch t := v.(type) {
	case *httpx.Response:
		if t == nil {
			return nil, fmt.Errorf("%w: nil *httpx.Response", ErrUnsupported)
		}
		return t, nil
	case string:
		return httpx.NewResponse(t), nil
	case []byte:
		return httpx.NewResponse(string(t)), nil
	case *httpx.Stream:
		if t == nil {
			return nil, fmt.Errorf("%w: nil *httpx.Stream", ErrUnsupported)
		}
		return httpx.NewStreamResponse(t), nil
	case iter.Seq[string]:
		return httpx.NewStreamResponse(httpx.NewStream(t)), nil
	case func(yield func(string) bool):
		return httpx.NewStreamResponse(httpx.NewStream(t)), nil
	case nil:
		return nil, fmt.Errorf("%w: got nil", ErrUnsupported)
	}

	if structured(reflect.ValueOf(v)) {
		return httpx.JSON(v, http.StatusOK)
	}
	return nil, fmt.Errorf("%w: got %T", ErrUnsupported, v)
}

func structured(rv reflect.Value) bool {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
