// Package prompt builds the instruction payload sent to the model.
package prompt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/phambaophuc/alt-text-relay/internal/services/fetcher"
	"github.com/phambaophuc/alt-text-relay/internal/services/gemini"
	"github.com/phambaophuc/alt-text-relay/pkg/utils"
)

type Mode int

const (
	ModeVision Mode = iota
	ModeTextOnly
)

func (m Mode) String() string {
	if m == ModeVision {
		return "vision"
	}
	return "text"
}

var ErrNoImage = errors.New("vision mode requires image data")

const instructions = `Return ONLY valid JSON. No explanation.

Format:
{
  "alt_text": "SEO friendly alt text under 100 characters including keyword and brand",
  "score": number from 0-100,
  "issues": "short issue description or None",
  "filename": "seo-optimized-file-name.jpg"
}
`

type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns the payload for imageRef. In vision mode img must carry the
// downloaded bytes; they are sent inline ahead of the instruction text.
func (b *Builder) Build(imageRef string, ctx map[string]any, mode Mode, img *fetcher.Image) (gemini.Payload, error) {
	text, err := b.Text(imageRef, ctx, mode)
	if err != nil {
		return gemini.Payload{}, err
	}

	var parts []gemini.Part
	if mode == ModeVision {
		if img == nil || len(img.Data) == 0 {
			return gemini.Payload{}, ErrNoImage
		}
		parts = append(parts, gemini.Part{InlineData: &gemini.InlineData{
			MimeType: img.MimeType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	parts = append(parts, gemini.Part{Text: text})

	return gemini.Payload{Contents: []gemini.Content{{Role: "user", Parts: parts}}}, nil
}

// Text renders the instruction text alone.
func (b *Builder) Text(imageRef string, ctx map[string]any, mode Mode) (string, error) {
	var sb strings.Builder
	sb.WriteString(instructions)

	if len(ctx) > 0 {
		encoded, err := json.Marshal(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to encode context: %w", err)
		}
		sb.WriteString("\nContext:\n")
		sb.Write(encoded)
		sb.WriteString("\n")
	} else if name := utils.ProductName(imageRef); name != "" {
		sb.WriteString("\nProduct name:\n")
		sb.WriteString(name)
		sb.WriteString("\n")
	}

	if mode == ModeVision {
		sb.WriteString("\nDescribe the attached image.\n")
	}
	sb.WriteString("\nImage URL:\n")
	sb.WriteString(imageRef)
	sb.WriteString("\n")

	return sb.String(), nil
}
