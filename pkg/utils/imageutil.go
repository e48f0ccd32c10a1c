package utils

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var nameSeparators = strings.NewReplacer("-", " ", "_", " ", "+", " ", ".", " ")

// ProductName derives a human readable name from the last path segment of an
// image URL: "https://x/red-running_shoe.jpg" becomes "red running shoe".
func ProductName(imageURL string) string {
	segment := imageURL
	if u, err := url.Parse(imageURL); err == nil && u.Path != "" {
		segment = u.Path
	}
	segment = path.Base(strings.TrimRight(segment, "/"))
	if segment == "." || segment == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}

	segment = strings.TrimSuffix(segment, filepath.Ext(segment))
	return strings.Join(strings.Fields(nameSeparators.Replace(segment)), " ")
}

// IsImageType checks if content type is an image type
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// GenerateArchiveKey builds the storage key for an archived batch. Only
// UUID batch ids are used verbatim; anything else is replaced by a fresh one.
func GenerateArchiveKey(batchID string, at time.Time) string {
	if id, err := uuid.Parse(batchID); err == nil {
		batchID = id.String()
	} else {
		batchID = uuid.New().String()
	}
	return fmt.Sprintf("batches/%s/%s.json", at.UTC().Format("2006-01-02"), batchID)
}
