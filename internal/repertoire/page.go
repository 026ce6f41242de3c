package repertoire

import "math"

const (
	// DefaultPageSize applies when a caller does not request a size.
	DefaultPageSize = 20
	// MaxPageSize bounds the number of rows returned by one listing.
	MaxPageSize = 2000
)

// SortOrder orders a listing by one representation property.
type SortOrder struct {
	Property   string
	Descending bool
}

// PageRequest selects a zero-based page of a listing.
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

func (r PageRequest) normalized() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

// Offset returns the number of rows preceding the requested page. Pages whose
// offset does not fit in an int saturate at math.MaxInt and select no rows.
func (r PageRequest) Offset() int {
	normalized := r.normalized()
	if normalized.Page > math.MaxInt/normalized.Size {
		return math.MaxInt
	}
	return normalized.Page * normalized.Size
}

// Page is the paginated envelope returned by every listing.
type Page[T any] struct {
	Content          []T   `json:"content"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	Size             int   `json:"size"`
	Number           int   `json:"number"`
	NumberOfElements int   `json:"numberOfElements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
}

// NewPage assembles the envelope for content selected by request out of total matches.
func NewPage[T any](content []T, request PageRequest, total int64) Page[T] {
	request = request.normalized()
	if content == nil {
		content = []T{}
	}
	totalPages := int((total + int64(request.Size) - 1) / int64(request.Size))
	return Page[T]{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             request.Size,
		Number:           request.Page,
		NumberOfElements: len(content),
		First:            request.Page == 0,
		Last:             request.Page >= totalPages-1,
		Empty:            len(content) == 0,
	}
}

func mapPage[S any, T any](items []S, request PageRequest, total int64, mapper func(S) T) Page[T] {
	content := make([]T, 0, len(items))
	for _, item := range items {
		content = append(content, mapper(item))
	}
	return NewPage(content, request, total)
}
