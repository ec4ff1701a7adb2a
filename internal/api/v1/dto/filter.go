package dto

// FilterCreateDTO is used for incoming filter creation requests.
type FilterCreateDTO struct {
	Category string `json:"category" validate:"required"`
	Tag      string `json:"tag" validate:"required"`
}

// FilterResponseDTO is returned in API responses for filters.
type FilterResponseDTO struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Tag      string `json:"tag"`
}
