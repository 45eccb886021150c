package provider

import (
	"net/http"
	"time"
)

// BaseTransport returns the HTTP transport configuration shared by provider clients.
func BaseTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
}

// NewHTTPClient creates an HTTP client for provider requests. Per-request
// deadlines come from the caller's context; timeout is a last-resort bound.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: BaseTransport(),
		Timeout:   timeout,
	}
}

// Preview shortens a response body for error messages.
func Preview(body []byte) string {
	const max = 120
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
