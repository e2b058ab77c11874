// Package group assembles discovered files into candidate book units.
package group

import (
	"log/slog"
	"sort"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/id"
	"github.com/listenupapp/listenup-organizer/internal/nameparse"
	"github.com/listenupapp/listenup-organizer/internal/scan"
)

// Grouper turns a source snapshot into book units. Loose files sharing a
// grouping key become one unit; each pre-formed folder becomes one unit.
type Grouper struct {
	parser *nameparse.Parser
	logger *slog.Logger
}

// New creates a grouper.
func New(parser *nameparse.Parser, logger *slog.Logger) *Grouper {
	return &Grouper{parser: parser, logger: logger}
}

// Result holds the grouped units plus the residue: loose files that could
// not join any unit with audio. Residue is never lost; the pipeline routes
// it to the unclassified area.
type Result struct {
	Units   []domain.BookUnit
	Residue []domain.RawFile
}

// Group assembles book units from a snapshot.
//
// Loose files group by nameparse.GroupKey, so "Book Part 1.mp3" and
// "Book Part 2.mp3" land in one unit and "Book.jpg" rides along as a cover
// candidate. A key with images but no audio cannot form a unit; those
// images go to Residue. Pre-formed folders map one to one onto units.
func (g *Grouper) Group(snap *scan.Snapshot) Result {
	var res Result

	byKey := make(map[string]*domain.BookUnit)
	var keyOrder []string
	unitFor := func(key string) *domain.BookUnit {
		if u, ok := byKey[key]; ok {
			return u
		}
		u := &domain.BookUnit{ID: id.MustGenerate("unit"), GroupKey: key}
		byKey[key] = u
		keyOrder = append(keyOrder, key)
		return u
	}

	for _, f := range snap.Loose {
		key := nameparse.GroupKey(f.Name)
		u := unitFor(key)
		switch f.Kind {
		case domain.FileKindAudio:
			u.Files = append(u.Files, f)
		case domain.FileKindImage:
			u.Images = append(u.Images, f)
		}
	}

	for _, key := range keyOrder {
		u := byKey[key]
		if len(u.Files) == 0 {
			// Images with no matching audio stay behind.
			res.Residue = append(res.Residue, u.Images...)
			continue
		}
		sortNatural(u.Files)
		g.inferNames(u, u.Files[0].Name)
		res.Units = append(res.Units, *u)
	}

	for _, folder := range snap.Folders {
		u := domain.BookUnit{
			ID:       id.MustGenerate("unit"),
			GroupKey: nameparse.Fold(folder.Name),
			Folder:   folder.Path,
		}
		for _, f := range folder.Files {
			switch f.Kind {
			case domain.FileKindAudio:
				u.Files = append(u.Files, f)
			case domain.FileKindImage:
				u.Images = append(u.Images, f)
			}
		}
		if len(u.Files) == 0 {
			g.logger.Debug("folder has no audio, skipping", "folder", folder.Name)
			continue
		}
		sortNatural(u.Files)
		g.inferNames(&u, folder.Name)
		res.Units = append(res.Units, u)
	}

	sort.SliceStable(res.Units, func(i, j int) bool {
		return res.Units[i].GroupKey < res.Units[j].GroupKey
	})

	g.logger.Info("grouping complete",
		"units", len(res.Units),
		"residue", len(res.Residue),
	)
	return res
}

// inferNames runs the name parser over the unit's display name and stores
// the best guess. An insufficient parse leaves both fields empty; the
// metadata resolver decides what to do with that downstream.
func (g *Grouper) inferNames(u *domain.BookUnit, displayName string) {
	parsed := g.parser.Parse(displayName)
	if parsed.Insufficient {
		g.logger.Debug("name parse insufficient",
			"unit", u.ID,
			"name", displayName,
			"reason", parsed.Reason,
		)
		return
	}
	if best, ok := parsed.Best(); ok {
		u.Author = best.Author
		u.Title = best.Title
	}
}
