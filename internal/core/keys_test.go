package core

import (
	"testing"
	"time"
)

func TestConvertedAssetKey(t *testing.T) {
	now := time.UnixMilli(1712345678901)

	tests := []struct {
		fileName string
		expected string
	}{
		{"sunset.jpg", "1712345678901-sunset.webp"},
		{"sunset.beach.jpg", "1712345678901-sunset.webp"},
		{"my photo (1).png", "1712345678901-my-photo-1.webp"},
		{"../../etc/passwd", "1712345678901-passwd.webp"},
		{`C:\Users\me\cat.gif`, "1712345678901-cat.webp"},
		{".hidden.png", "1712345678901-image.webp"},
		{"日本.png", "1712345678901-image.webp"},
		{"", "1712345678901-image.webp"},
		{"snake_case-name.bmp", "1712345678901-snake_case-name.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			if got := convertedAssetKey(now, tt.fileName, "webp"); got != tt.expected {
				t.Errorf("convertedAssetKey(%q) = %q, want %q", tt.fileName, got, tt.expected)
			}
		})
	}
}

func TestOriginalAssetKey(t *testing.T) {
	now := time.UnixMilli(1712345678901)

	tests := []struct {
		fileName string
		expected string
	}{
		{"sunset.jpg", "1712345678901-original-sunset.jpg"},
		{"my photo (1).png", "1712345678901-original-my-photo-1-.png"},
		{"../secret.png", "1712345678901-original-secret.png"},
		{"..", "1712345678901-original-image"},
		{"", "1712345678901-original-image"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			if got := originalAssetKey(now, tt.fileName); got != tt.expected {
				t.Errorf("originalAssetKey(%q) = %q, want %q", tt.fileName, got, tt.expected)
			}
		})
	}
}

func TestDownloadFileName(t *testing.T) {
	tests := []struct {
		title    string
		format   string
		expected string
	}{
		{"Sunset", "jpeg", "Sunset.jpeg"},
		{"City at night", "png", "City-at-night.png"},
		{"???", "png", "image.png"},
	}
	for _, tt := range tests {
		if got := downloadFileName(tt.title, tt.format); got != tt.expected {
			t.Errorf("downloadFileName(%q, %q) = %q, want %q", tt.title, tt.format, got, tt.expected)
		}
	}
}
