package models

// GenerateAltRequest is the JSON body accepted by POST /generate-alt.
type GenerateAltRequest struct {
	Images  []string       `json:"images"`
	Context map[string]any `json:"context,omitempty"`
}

// BatchRequest is built once per incoming call and is not mutated afterwards.
type BatchRequest struct {
	RequestID      string // correlates logs only; batch ids are minted server side
	Images         []string
	Context        map[string]any
	CallerIdentity string
	IsPrivileged   bool
}

type BatchResponse struct {
	Results []ImageResult `json:"results"`
}
