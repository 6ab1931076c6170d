package models

// RecommendedSong is the song block of a successful /analyze response
type RecommendedSong struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	ChorusURL string `json:"chorusUrl"`
}

// RecommendationResponse is the body of a successful /analyze response.
// Caption is omitted entirely for stories.
type RecommendationResponse struct {
	RecommendedSong RecommendedSong `json:"recommendedSong"`
	Caption         *string         `json:"caption,omitempty"`
	PostType        PostMode        `json:"postType"`

	// AudioSource says which source produced ChorusURL; sent as a header only
	AudioSource string `json:"-"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
