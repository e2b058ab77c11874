// Package domain defines the core data model for the organizer pipeline.
package domain

import (
	"time"
)

// FileKind is the coarse classification of a discovered file.
type FileKind int

// FileKind constants. Everything that is neither audio nor image is ignored
// by the grouper.
const (
	FileKindAudio FileKind = iota
	FileKindImage
	FileKindIgnored
)

// String returns the string representation of a FileKind.
func (k FileKind) String() string {
	switch k {
	case FileKindAudio:
		return "audio"
	case FileKindImage:
		return "image"
	case FileKindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// RawFile is a file discovered in the source directory. Immutable once
// discovered; it belongs to the source directory until grouped.
type RawFile struct {
	ModTime time.Time
	Path    string
	Name    string
	Kind    FileKind
	Size    int64
}

// BookUnit is a candidate single audiobook: the set of files judged to
// constitute one book, plus what the name parser could infer about it.
//
// Invariants:
//   - all members share GroupKey
//   - a unit with zero audio members is invalid and must be discarded
//
// Created by the grouper, consumed by staging, gone once committed or
// rolled back.
type BookUnit struct {
	// ID is a short random identifier used for logging and staging paths.
	ID string

	// GroupKey is the filename stem with part markers stripped. Pre-formed
	// folder units use the folder name.
	GroupKey string

	// Folder is the source folder for pre-formed units, empty for units
	// assembled from loose files.
	Folder string

	// Author and Title are the parser's best guess; either may be empty.
	Author string
	Title  string

	// Files are the member audio files ordered by filename for chapter
	// sequencing. Images are sidecar candidates found alongside them.
	Files  []RawFile
	Images []RawFile
}

// TotalSize returns the summed size of all member audio files.
func (u *BookUnit) TotalSize() int64 {
	var total int64
	for _, f := range u.Files {
		total += f.Size
	}
	return total
}

// FileNames returns the member audio file names in chapter order.
func (u *BookUnit) FileNames() []string {
	names := make([]string, len(u.Files))
	for i, f := range u.Files {
		names[i] = f.Name
	}
	return names
}
