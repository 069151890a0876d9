// Package connector holds what the upstream adapters share. Each subpackage
// talks to one upstream system and maps its records onto the identity model.
package connector

import (
	"context"
	"net/url"
	"strconv"
)

// Requester is the upstream client used by every adapter.
type Requester interface {
	Name() string
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Page is one page of upstream search results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// PageRequest selects a page. Zero values leave paging to the upstream.
type PageRequest struct {
	Page int `form:"page" validate:"gte=0"`
	Size int `form:"size" validate:"gte=0,lte=1000"`
}

// Apply adds the paging parameters to q.
func (p PageRequest) Apply(q url.Values) {
	if p.Size > 0 {
		q.Set("page", strconv.Itoa(p.Page))
		q.Set("size", strconv.Itoa(p.Size))
	}
}

// PathEscape escapes one path segment.
func PathEscape(s string) string {
	return url.PathEscape(s)
}
