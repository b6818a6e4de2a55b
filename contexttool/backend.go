package contexttool

import "context"

// Backend resolves a context_key/parameters pair to its underlying,
// already-serialized value plus any metadata the source itself attaches.
// RequestContext consults a Backend only on a cache miss and appends its
// own timestamp metadata entry to whatever the Backend returns.
type Backend interface {
	Fetch(ctx context.Context, contextKey string, params map[string]string) (value []byte, metadata []string, err error)
}

// BackendFunc adapts a plain function to a Backend.
type BackendFunc func(ctx context.Context, contextKey string, params map[string]string) ([]byte, []string, error)

func (f BackendFunc) Fetch(ctx context.Context, contextKey string, params map[string]string) ([]byte, []string, error) {
	return f(ctx, contextKey, params)
}
