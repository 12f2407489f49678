package service

import (
	"io"
	"strings"
)

// Upload is one file received from a client.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

const (
	maxReviewImages    = 5
	maxReviewImageSize = 5 << 20
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func isImage(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	return imageTypes[strings.ToLower(strings.TrimSpace(ct))]
}
