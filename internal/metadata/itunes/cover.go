package itunes

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

// maxCoverSize is the size we request from iTunes.
// iTunes will serve the largest available size up to this.
const maxCoverSize = "7000x7000bb.jpg"

// sizePattern matches iTunes artwork size patterns like "100x100bb.jpg"
var sizePattern = regexp.MustCompile(`/\d+x\d+bb\.jpg$`)

// MaxCoverURL transforms an iTunes artwork URL to request maximum
// resolution. iTunes serves the largest available size (e.g. 2400x2400 if
// that is the max).
func MaxCoverURL(url string) string {
	if url == "" {
		return ""
	}
	return sizePattern.ReplaceAllString(url, "/"+maxCoverSize)
}

// ImageDimensions fetches actual image dimensions by reading headers.
// Uses an HTTP Range request to fetch only the bytes needed for JPEG/PNG
// parsing.
func ImageDimensions(ctx context.Context, httpClient *http.Client, url string) (width, height int, err error) {
	if url == "" {
		return 0, 0, fmt.Errorf("empty URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	// 32KB is enough for image headers.
	req.Header.Set("Range", "bytes=0-32767")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch image header: %w", err)
	}
	defer resp.Body.Close()

	// Accept both 200 (full content) and 206 (partial content).
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32768))
	if err != nil {
		return 0, 0, fmt.Errorf("read image header: %w", err)
	}
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("empty response body (status %d)", resp.StatusCode)
	}

	if w, h, ok := parseJPEGDimensions(data); ok {
		return w, h, nil
	}
	if w, h, ok := parsePNGDimensions(data); ok {
		return w, h, nil
	}

	return 0, 0, fmt.Errorf("could not determine image dimensions (read %d bytes)", len(data))
}

// parseJPEGDimensions extracts dimensions from JPEG data by scanning for
// SOF0, SOF1, or SOF2 markers.
func parseJPEGDimensions(data []byte) (width, height int, ok bool) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, false // Not a JPEG
	}

	i := 2
	for i < len(data)-9 {
		if data[i] != 0xFF {
			i++
			continue
		}

		marker := data[i+1]

		// SOF0 (baseline), SOF1 (extended), SOF2 (progressive)
		if marker == 0xC0 || marker == 0xC1 || marker == 0xC2 {
			// SOF segment: length(2) + precision(1) + height(2) + width(2)
			if i+9 > len(data) {
				return 0, 0, false
			}
			height = int(binary.BigEndian.Uint16(data[i+5 : i+7]))
			width = int(binary.BigEndian.Uint16(data[i+7 : i+9]))
			return width, height, true
		}

		if i+3 >= len(data) {
			break
		}
		segmentLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		i += 2 + segmentLen
	}

	return 0, 0, false
}

// parsePNGDimensions extracts dimensions from the PNG IHDR chunk.
func parsePNGDimensions(data []byte) (width, height int, ok bool) {
	pngSig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if len(data) < 24 || !bytes.Equal(data[:8], pngSig) {
		return 0, 0, false // Not a PNG
	}

	if string(data[12:16]) != "IHDR" {
		return 0, 0, false
	}

	width = int(binary.BigEndian.Uint32(data[16:20]))
	height = int(binary.BigEndian.Uint32(data[20:24]))
	return width, height, true
}
