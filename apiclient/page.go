package apiclient

import "context"

// Page is the envelope the platform's list endpoints return.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// GetPage fetches a paged list endpoint and decodes its envelope.
func GetPage[T any](ctx context.Context, c *Client, endpoint string, params map[string]any) (*Page[T], error) {
	var page Page[T]
	if err := c.Get(ctx, endpoint, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
