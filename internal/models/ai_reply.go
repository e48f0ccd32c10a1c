package models

// ParsedRecord is the structured reply recovered from the model text.
type ParsedRecord struct {
	AltText  string   `json:"alt_text"`
	Score    *float64 `json:"score,omitempty"`
	Issues   string   `json:"issues"`
	Filename string   `json:"filename"`
}

// AIReply is scoped to the processing of a single image.
type AIReply struct {
	RawText string
	Parsed  *ParsedRecord
}
