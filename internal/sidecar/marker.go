package sidecar

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MarkerName flags a folder whose files already carry written tags, so
// smart mode can skip it on later runs.
const MarkerName = ".tags_written"

// WriteMarker records that a folder's tags were written, with a UTC
// timestamp as the file body for operators poking around.
func WriteMarker(dir string) error {
	body := time.Now().UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(filepath.Join(dir, MarkerName), []byte(body), 0o644)
}

// HasMarker reports whether a folder carries the tags-written marker.
func HasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerName))
	return err == nil && !info.IsDir()
}

// MarkerTime returns when the marker was written, or zero when absent or
// unparseable.
func MarkerTime(dir string) time.Time {
	data, err := os.ReadFile(filepath.Join(dir, MarkerName))
	if err != nil {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return ts
}

// RemoveMarker deletes the marker, forcing the next smart run to rework
// the folder. Missing markers are not an error.
func RemoveMarker(dir string) error {
	err := os.Remove(filepath.Join(dir, MarkerName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
