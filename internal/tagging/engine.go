package tagging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
)

// Mode selects what the engine writes for a folder.
type Mode string

// Engine modes.
const (
	// ModeSmart writes tags and cover, skipping folders already marked done.
	ModeSmart Mode = "smart"
	// ModeAll writes tags and cover unconditionally.
	ModeAll Mode = "all"
	// ModeTagsOnly writes text tags and never touches cover art.
	ModeTagsOnly Mode = "tags-only"
	// ModeCoverOnly writes cover art and never touches text tags.
	ModeCoverOnly Mode = "cover-only"
	// ModeFixCovers replaces embedded covers that fail validation.
	ModeFixCovers Mode = "fix-covers"
	// ModeEdit applies a single-field find/replace across a folder.
	ModeEdit Mode = "edit"
)

// ParseMode validates a mode string from config.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSmart, ModeAll, ModeTagsOnly, ModeCoverOnly, ModeFixCovers, ModeEdit:
		return m, nil
	default:
		return "", fmt.Errorf("unknown tagging mode %q", s)
	}
}

// NeedsMetadata reports whether the mode requires resolved metadata.
func (m Mode) NeedsMetadata() bool {
	switch m {
	case ModeSmart, ModeAll, ModeTagsOnly, ModeEdit:
		return true
	}
	return false
}

// NeedsCover reports whether the mode requires a cover asset.
func (m Mode) NeedsCover() bool {
	switch m {
	case ModeSmart, ModeAll, ModeCoverOnly, ModeFixCovers:
		return true
	}
	return false
}

// Engine applies a mode to a book folder's audio files.
type Engine struct {
	rules  covers.Rules
	logger *slog.Logger
}

// NewEngine creates a tagging engine.
func NewEngine(rules covers.Rules, logger *slog.Logger) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Result summarizes what Apply did to a folder.
type Result struct {
	Skipped       bool
	TaggedFiles   int
	CoversWritten int
}

// Apply runs a mode over a folder. audioFiles must be in chapter order;
// meta may be nil for modes that do not need it, cover likewise.
// Full-write modes stamp the folder with the done marker; cover modes do
// not, since text tags may still be missing.
func (e *Engine) Apply(dir string, audioFiles []string, meta *domain.BookMetadata, cover []byte, mode Mode) (Result, error) {
	var res Result
	if len(audioFiles) == 0 {
		return res, errors.Validation("no audio files to tag")
	}

	switch mode {
	case ModeSmart:
		if sidecar.HasMarker(dir) {
			e.logger.Debug("folder already tagged, skipping",
				"dir", dir, "taggedAt", sidecar.MarkerTime(dir))
			res.Skipped = true
			return res, nil
		}
		return e.writeAll(dir, audioFiles, meta, cover)

	case ModeAll:
		return e.writeAll(dir, audioFiles, meta, cover)

	case ModeTagsOnly:
		return e.writeAll(dir, audioFiles, meta, nil)

	case ModeCoverOnly:
		res, err := e.writeCovers(audioFiles, cover, false)
		if err != nil {
			return res, err
		}
		if err := sidecar.WriteMarker(dir); err != nil {
			return res, errors.Wrap(err, errors.CodeFilesystem, "writing done marker")
		}
		return res, nil

	// Marker untouched: replacing broken art does not make the text tags
	// current.
	case ModeFixCovers:
		return e.writeCovers(audioFiles, cover, true)

	default:
		return res, fmt.Errorf("mode %q is not applied per folder", mode)
	}
}

func (e *Engine) writeAll(dir string, audioFiles []string, meta *domain.BookMetadata, cover []byte) (Result, error) {
	var res Result
	if meta == nil {
		return res, errors.Validation("metadata required for full tag write")
	}

	// Drop any stale marker first: a failure partway through must not
	// leave the folder looking current to a later smart run.
	if err := sidecar.RemoveMarker(dir); err != nil {
		return res, errors.Wrap(err, errors.CodeFilesystem, "clearing done marker")
	}

	tags := BuildFileTags(meta, len(audioFiles), cover)
	for i, path := range audioFiles {
		if err := Write(path, &tags[i]); err != nil {
			return res, errors.Wrapf(err, errors.CodeFilesystem, "tagging %s", path)
		}
		res.TaggedFiles++
		if len(cover) > 0 {
			res.CoversWritten++
		}
	}

	if err := sidecar.WriteMarker(dir); err != nil {
		return res, errors.Wrap(err, errors.CodeFilesystem, "writing done marker")
	}
	return res, nil
}

// writeCovers replaces embedded art. With onlyInvalid set, files whose
// current art already passes validation keep it.
func (e *Engine) writeCovers(audioFiles []string, cover []byte, onlyInvalid bool) (Result, error) {
	var res Result
	if len(cover) == 0 {
		return res, errors.Validation("cover required for cover mode")
	}

	for _, path := range audioFiles {
		if onlyInvalid {
			existing, err := covers.FromEmbedded(path, e.rules)
			if err == nil && existing != nil && existing.Validated {
				continue
			}
		}
		if err := WriteCover(path, cover); err != nil {
			return res, errors.Wrapf(err, errors.CodeFilesystem, "writing cover to %s", path)
		}
		res.CoversWritten++
	}
	return res, nil
}
