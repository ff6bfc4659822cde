package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetyagent/internal/config"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantExt string
	}{
		{"pdf", "Inspection Report.PDF", ".pdf"},
		{"windows path", `C:\Users\x\notes.docx`, ".docx"},
		{"no extension", "README", ""},
		{"odd extension dropped", "a.b c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ObjectKey(tt.file)
			require.True(t, strings.HasPrefix(key, KeyPrefix))
			assert.True(t, strings.HasSuffix(key, tt.wantExt))
			assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefix), tt.wantExt), 36)
		})
	}

	assert.NotEqual(t, ObjectKey("a.txt"), ObjectKey("a.txt"))
}

func TestNewMinIO_Validation(t *testing.T) {
	full := config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "b"}

	tests := []struct {
		name    string
		mutate  func(c *config.MinIOConfig)
		wantErr string
	}{
		{"endpoint", func(c *config.MinIOConfig) { c.Endpoint = "" }, "minio endpoint is required"},
		{"credentials", func(c *config.MinIOConfig) { c.SecretKey = "" }, "minio credentials are required"},
		{"bucket", func(c *config.MinIOConfig) { c.Bucket = "" }, "minio bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			s, err := NewMinIO(context.Background(), cfg)
			assert.EqualError(t, err, tt.wantErr)
			assert.Nil(t, s)
		})
	}
}
