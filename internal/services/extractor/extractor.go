// Package extractor recovers the structured alt-text record from model output
// that may be fenced in markdown or wrapped in prose.
package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/phambaophuc/alt-text-relay/internal/models"
)

var fenceRe = regexp.MustCompile("```(?:json|JSON)?")

// Extract returns nil when no JSON object can be recovered. It never panics.
func Extract(raw string) *models.ParsedRecord {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return nil
	}

	if fields, ok := parseObject(cleaned); ok {
		return toRecord(fields)
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil
	}
	if fields, ok := parseObject(cleaned[start : end+1]); ok {
		return toRecord(fields)
	}
	return nil
}

func parseObject(s string) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func toRecord(fields map[string]any) *models.ParsedRecord {
	return &models.ParsedRecord{
		AltText:  stringField(fields["alt_text"]),
		Score:    scoreField(fields["score"]),
		Issues:   stringField(fields["issues"]),
		Filename: stringField(fields["filename"]),
	}
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// scoreField accepts a JSON number or a numeric string.
func scoreField(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}
