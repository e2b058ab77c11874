package itunes

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxCoverURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"standard artwork url",
			"https://is1-ssl.mzstatic.com/image/thumb/Music/v4/ab/cd/ef/source/100x100bb.jpg",
			"https://is1-ssl.mzstatic.com/image/thumb/Music/v4/ab/cd/ef/source/7000x7000bb.jpg",
		},
		{
			"60px variant",
			"https://is1-ssl.mzstatic.com/image/thumb/x/60x60bb.jpg",
			"https://is1-ssl.mzstatic.com/image/thumb/x/7000x7000bb.jpg",
		},
		{"empty", "", ""},
		{"no size suffix", "https://example.com/cover.jpg", "https://example.com/cover.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxCoverURL(tt.in))
		})
	}
}

func TestParseJPEGDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 640, 480)), nil))

	w, h, ok := parseJPEGDimensions(buf.Bytes())
	require.True(t, ok)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestParsePNGDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 320, 200))))

	w, h, ok := parsePNGDimensions(buf.Bytes())
	require.True(t, ok)
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
}

func TestParseDimensionsRejectsGarbage(t *testing.T) {
	_, _, ok := parseJPEGDimensions([]byte("garbage"))
	assert.False(t, ok)
	_, _, ok = parsePNGDimensions([]byte("garbage"))
	assert.False(t, ok)
}

func TestImageDimensionsViaRangeRequest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 600, 600))))

	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	w, h, err := ImageDimensions(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 600, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, "bytes=0-32767", gotRange)
}
