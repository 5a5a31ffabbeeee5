package client

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// InternalTimeout bounds calls to services we operate.
	InternalTimeout = 30 * time.Second
	// ExternalTimeout bounds calls to third-party engines.
	ExternalTimeout = 60 * time.Second

	maxRedirects = 10
)

// NewInternalHTTPClient returns a client for calls between our own services.
func NewInternalHTTPClient() *http.Client {
	return NewCustomHTTPClient(InternalTimeout)
}

// NewExternalHTTPClient returns a client for third-party engines such as
// the translation service.
func NewExternalHTTPClient() *http.Client {
	return NewCustomHTTPClient(ExternalTimeout)
}

// NewCustomHTTPClient returns a pooled client with the given overall timeout.
// Outbound requests carry X-Request-Id and an OpenTelemetry client span.
func NewCustomHTTPClient(timeout time.Duration) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()

	return &http.Client{
		Transport: otelhttp.NewTransport(NewRequestIDTransport(base)),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
