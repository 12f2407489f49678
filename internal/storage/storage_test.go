package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"llouest/internal/config"
)

func TestNewKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		filename string
		wantExt  string
	}{
		{"keeps extension lowercased", PrefixReviews, "Photo.JPG", ".jpg"},
		{"no extension", PrefixFiles, "README", ""},
		{"strips windows path", PrefixFiles, `C:\Users\me\devis.pdf`, ".pdf"},
		{"drops suspicious extension", PrefixFiles, "a.b c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewKey(tt.prefix, tt.filename)
			assert.True(t, strings.HasPrefix(key, tt.prefix+"/"))
			assert.True(t, strings.HasSuffix(key, tt.wantExt))
			// prefix + "/" + 36 char uuid + ext
			assert.Len(t, key, len(tt.prefix)+1+36+len(tt.wantExt))
		})
	}
}

func TestNewMinIO_Validation(t *testing.T) {
	_, err := NewMinIO(config.MinIOConfig{})
	assert.EqualError(t, err, "minio endpoint is required")

	_, err = NewMinIO(config.MinIOConfig{Endpoint: "localhost:9000"})
	assert.EqualError(t, err, "minio credentials are required")

	_, err = NewMinIO(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.EqualError(t, err, "minio bucket is required")
}

func TestMapMinioErr(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	assert.ErrorIs(t, mapMinioErr(missing), ErrObjectNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapMinioErr(other))
}
