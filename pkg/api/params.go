package api

import (
	"strconv"
	"strings"

	"routecore/pkg/httpx"
)

// QueryString returns the trimmed query value for key.
func QueryString(req *httpx.Request, key string) string {
	return strings.TrimSpace(req.Get(key))
}

// QueryInt returns the query value for key as an int, or def.
func QueryInt(req *httpx.Request, key string, def int) int {
	v := QueryString(req, key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

// HeaderString returns the trimmed header value for key.
func HeaderString(req *httpx.Request, key string) string {
	return strings.TrimSpace(req.Header.Get(key))
}

// Param returns a trimmed path parameter.
func Param(req *httpx.Request, key string) string {
	return strings.TrimSpace(req.Param(key))
}
