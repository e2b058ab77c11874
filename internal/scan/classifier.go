package scan

import (
	"path/filepath"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// Classifier sorts files into audio, image, and ignored by extension.
// Extension sets come from config so libraries with unusual containers
// can widen them without a rebuild.
type Classifier struct {
	audio map[string]bool
	image map[string]bool
}

// NewClassifier builds a classifier from extension lists. Extensions may be
// given with or without the leading dot, any case.
func NewClassifier(audioExts, imageExts []string) *Classifier {
	return &Classifier{
		audio: extSet(audioExts),
		image: extSet(imageExts),
	}
}

// Classify returns the kind of a file from its name alone.
func (c *Classifier) Classify(name string) domain.FileKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case c.audio[ext]:
		return domain.FileKindAudio
	case c.image[ext]:
		return domain.FileKindImage
	default:
		return domain.FileKindIgnored
	}
}

func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}
