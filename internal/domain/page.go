package domain

// PageRequest selects one 0-based page of a listing.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the number of rows skipped before the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of results with its pagination metadata.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	HasNext       bool  `json:"hasNext"`
	HasPrevious   bool  `json:"hasPrevious"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         req.Page == 0,
		Last:          req.Page+1 >= totalPages,
		HasNext:       req.Page+1 < totalPages,
		HasPrevious:   req.Page > 0,
	}
}
