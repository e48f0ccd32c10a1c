package models

// ImageResult is the per-image record returned to the caller. Score holds a
// number when the model produced one and an empty string otherwise.
type ImageResult struct {
	Image    string `json:"image"`
	AltText  string `json:"alt_text"`
	Score    any    `json:"score"`
	Issues   string `json:"issues"`
	Filename string `json:"filename"`
}
