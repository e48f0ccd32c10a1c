// Package gemini talks to the Gemini generateContent REST endpoint.
package gemini

import "context"

// Payload is the generateContent request body.
type Payload struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// HasImage reports whether the payload carries inline image bytes.
func (p Payload) HasImage() bool {
	for _, c := range p.Contents {
		for _, part := range c.Parts {
			if part.InlineData != nil {
				return true
			}
		}
	}
	return false
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// text returns the first candidate's first text part, or "" when absent.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// Client invokes the model and returns its raw reply text.
type Client interface {
	Generate(ctx context.Context, payload Payload) (string, error)
}
