// Package simplybook implements the booking-API driven ports: authentication,
// a resilient token-authenticated fetcher, slot sources and the service and
// provider directory for both the REST (v2) and JSON-RPC (v1) dialects of the
// SimplyBook API.
package simplybook

import (
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/gregjones/httpcache"
)

// Default API hosts.
const (
	DefaultRESTBaseURL = "https://user-api-v2.simplybook.me"
	DefaultRPCBaseURL  = "https://user-api.simplybook.me"
)

// Request headers understood by both dialects.
const (
	headerCompany = "X-Company-Login"
	headerToken   = "X-Token"
)

const defaultUserAgent = "nextslot/1.0"

// maxBodyBytes bounds how much of a response is read into memory.
const maxBodyBytes = 4 << 20

// NewHTTPClient returns the client shared by authenticators and fetchers. Its
// transport is an in-memory httpcache layer, so upstream Cache-Control and
// ETag headers are honoured without extra round trips. Timeouts are applied
// per request through contexts.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: httpcache.NewMemoryCacheTransport()}
}

// endpointURL joins p onto baseURL.
func endpointURL(baseURL, p string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("parsing base URL: %q is not absolute", baseURL)
	}
	u.Path = path.Join("/", u.Path, p)
	return u.String(), nil
}
