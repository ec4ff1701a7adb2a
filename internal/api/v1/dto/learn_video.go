package dto

// LearnVideoCreateDTO is used for incoming learning video creation requests.
type LearnVideoCreateDTO struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	VimeoURL    string `json:"vimeo_url" validate:"required,url"`
	Position    int    `json:"position" validate:"gte=0"`
}

// LearnVideoUpdateDTO is used for incoming learning video update requests.
type LearnVideoUpdateDTO struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	VimeoURL    *string `json:"vimeo_url,omitempty" validate:"omitempty,url"`
	Position    *int    `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// LearnVideoResponseDTO is returned in API responses for learning videos.
type LearnVideoResponseDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	VimeoURL    string `json:"vimeo_url"`
	Position    int    `json:"position"`
}
