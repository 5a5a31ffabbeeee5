package client

import (
	"net/http"

	"meetspace-api/internal/observability/requestid"
)

// HeaderRequestID is the correlation header shared with downstream services.
const HeaderRequestID = "X-Request-Id"

// RequestIDTransport copies the request id of the context onto outbound
// requests. A header already set by the caller is left alone.
type RequestIDTransport struct {
	base http.RoundTripper
}

// NewRequestIDTransport wraps base, or http.DefaultTransport when nil.
func NewRequestIDTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RequestIDTransport{base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *RequestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(HeaderRequestID) != "" {
		return t.base.RoundTrip(req)
	}

	reqID := requestid.GetRequestID(req.Context())
	if reqID == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	cloned := req.Clone(req.Context())
	cloned.Header.Set(HeaderRequestID, reqID)
	return t.base.RoundTrip(cloned)
}
