package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProductName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "dashes", input: "https://shop.example/img/red-running-shoe.jpg", expected: "red running shoe"},
		{name: "underscores and query", input: "https://x/a/blue_denim_jacket.png?w=400", expected: "blue denim jacket"},
		{name: "escaped spaces", input: "https://x/Leather%20Wallet.webp", expected: "Leather Wallet"},
		{name: "no extension", input: "https://x/products/mug", expected: "mug"},
		{name: "trailing slash", input: "https://x/products/lamp/", expected: "lamp"},
		{name: "double extension", input: "https://x/photo.final.jpeg", expected: "photo final"},
		{name: "host only", input: "https://x", expected: "x"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := ProductName(tt.input); actual != tt.expected {
				t.Errorf("ProductName(%q) = %q, expected %q", tt.input, actual, tt.expected)
			}
		})
	}
}

func TestIsImageType(t *testing.T) {
	for ct, expected := range map[string]bool{
		"image/jpeg":               true,
		"IMAGE/PNG":                true,
		"text/html; charset=utf-8": false,
		"":                         false,
	} {
		if actual := IsImageType(ct); actual != expected {
			t.Errorf("IsImageType(%q) = %v, expected %v", ct, actual, expected)
		}
	}
}

func TestGenerateArchiveKey(t *testing.T) {
	at := time.Date(2026, 1, 2, 23, 0, 0, 0, time.FixedZone("x", -3*3600))
	id := "0f8c3b8e-3c55-4d3a-9a57-1f9d3e2b7c10"
	if expected, actual := "batches/2026-01-03/"+id+".json", GenerateArchiveKey(id, at); expected != actual {
		t.Errorf("Expected %q, got %q", expected, actual)
	}

	for _, batchID := range []string{"", "abc", "../../../other-bucket-path/x", "a/b"} {
		t.Run(batchID, func(t *testing.T) {
			key := GenerateArchiveKey(batchID, at)
			name, ok := strings.CutPrefix(key, "batches/2026-01-03/")
			if !ok {
				t.Fatalf("Expected dated prefix, got %q", key)
			}
			if _, err := uuid.Parse(strings.TrimSuffix(name, ".json")); err != nil {
				t.Errorf("Expected generated uuid in key, got %q", key)
			}
		})
	}
}
