package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	pdf := []byte("%PDF-1.7\n")

	tests := []struct {
		name     string
		data     []byte
		declared string
		want     string
	}{
		{name: "png bytes win over header", data: png, declared: "application/pdf", want: "image/png"},
		{name: "pdf", data: pdf, want: "application/pdf"},
		{name: "json falls back to header", data: []byte(`{"a":1}`), declared: "application/json; charset=utf-8", want: "application/json"},
		{name: "plain text without header", data: []byte("hello"), want: "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.data, tt.declared))
		})
	}
}

func TestPublicURL(t *testing.T) {
	m := &MinIO{bucket: "pins", publicURL: "http://localhost:9000/pins"}
	assert.Equal(t, "http://localhost:9000/pins/pins/abc", m.PublicURL("pins/abc"))

	a := &AwsS3{bucket: "crimson", region: "ap-south-1"}
	assert.Equal(t, "https://crimson.s3.ap-south-1.amazonaws.com/pins/abc.json", a.PublicURL("pins/abc.json"))
}
