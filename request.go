package mpstream

import (
	"context"
	"net/http"
)

// NewRequest builds an HTTP request that streams body, with Content-Type and
// ContentLength taken from it. When the length is unknown the request is
// sent chunked.
func NewRequest(ctx context.Context, method, url string, body *Body) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", body.ContentType())
	req.ContentLength = body.ContentLength()
	if req.ContentLength == 0 {
		req.Body = http.NoBody
	}
	return req, nil
}
