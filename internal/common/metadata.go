package common

import "math"

// Metadata describes one page of a paginated listing.
type Metadata struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewMetadata(total, page, perPage int) Metadata {
	if total == 0 {
		return Metadata{Page: page, PerPage: perPage}
	}

	return Metadata{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}
}
