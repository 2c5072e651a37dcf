package output

import (
	"context"
	"net/http"
	"net/url"
)

// CRUDPort is a generic JSON-over-HTTP client bound to one service base URL.
type CRUDPort interface {
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
	Post(ctx context.Context, path string, body any, query url.Values) (*http.Response, error)
	Put(ctx context.Context, path string, body any, query url.Values) (*http.Response, error)
	Patch(ctx context.Context, path string, body any, query url.Values) (*http.Response, error)
	Delete(ctx context.Context, path string, query url.Values) (*http.Response, error)
}
