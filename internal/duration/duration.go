// Package duration probes the playing time of audio files so chapter
// markers can be synthesized for multi-file books. Only the containers with
// cheap header math are probed; anything else reports unknown.
package duration

import (
	"path/filepath"
	"strings"
	"time"
)

// Probe returns the playing time of an audio file, or 0 when the container
// is unsupported or the headers cannot be read. Unknown is not an error;
// callers skip chapter synthesis when any member is unknown.
func Probe(path string) time.Duration {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return probeMP3(path)
	case ".m4a", ".m4b", ".mp4":
		return probeMP4(path)
	default:
		return 0
	}
}
