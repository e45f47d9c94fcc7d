package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Get issues a GET. params are serialized into the query string; nil and
// empty-string values are skipped so optional filters can be passed through
// unconditionally.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]any, out any) error {
	if query := encodeParams(params); query != "" {
		endpoint += "?" + query
	}
	return c.Do(ctx, http.MethodGet, endpoint, nil, out, nil)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out, nil)
}

// Put tolerates an empty response body: mutation endpoints frequently answer
// 200/204 with nothing to decode.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPut, endpoint, body, out, nil)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, endpoint, body, out, nil)
}

// Delete discards the response body.
func (c *Client) Delete(ctx context.Context, endpoint string) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

func encodeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range params {
		if value == nil {
			continue
		}
		s := fmt.Sprint(value)
		if s == "" {
			continue
		}
		values.Set(key, s)
	}
	return values.Encode()
}
