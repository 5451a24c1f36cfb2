package httpx

import (
	"fmt"

	"routecore/pkg/logger"
)

// HandlerFunc produces the response for a transport-independent request.
type HandlerFunc func(req *Request) *Response

// RunCallbacks fires the post-send callbacks in registration order on a
// separate goroutine. Panics are logged and never reach the caller.
func RunCallbacks(callbacks []func()) {
	if len(callbacks) == 0 {
		return
	}
	go func() {
		for i, cb := range callbacks {
			runCallback(i, cb)
		}
	}()
}

func runCallback(i int, cb func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("post_send_callback_failed", "index", i, "error", fmt.Sprint(r))
		}
	}()
	cb()
}
