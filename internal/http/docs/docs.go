// Package docs serves the embedded OpenAPI document and a reference page
// rendered from it.
package docs

import (
	_ "embed"
	"fmt"
	"net/http"
)

//go:embed openapi.yaml
var openAPISpec []byte

// SpecBytes returns the embedded OpenAPI document.
func SpecBytes() []byte {
	return openAPISpec
}

// OpenAPIHandler serves the document as YAML.
func OpenAPIHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(openAPISpec)
	})
}

// ScalarDocsHandler serves a minimal page that loads the Scalar API
// reference from a CDN and points it at specURL.
func ScalarDocsHandler(specURL string) http.Handler {
	page := []byte(fmt.Sprintf(`<!doctype html>
<html>
  <head>
    <title>Meetspace API Reference</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>body { margin: 0; }</style>
  </head>
  <body>
    <script id="api-reference" data-url="%s" data-configuration='{"theme":"default"}'></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
  </body>
</html>`, specURL))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	})
}
