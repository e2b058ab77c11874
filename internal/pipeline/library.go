package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/group"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
	"github.com/listenupapp/listenup-organizer/internal/tagging"
)

// BookFolder is one committed book in the Author/Title library tree.
type BookFolder struct {
	Author     string
	Title      string
	Path       string
	AudioFiles []string
	HasSidecar bool
}

// LibraryBooks enumerates the book folders of the library tree, sorted by
// path. The unclassified bucket and hidden directories are skipped; a book
// folder is any Author/Title directory holding at least one supported audio
// file.
func (p *Pipeline) LibraryBooks() ([]BookFolder, error) {
	root := p.cfg.Library.LibraryDir
	authors, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFilesystem, "reading library %s", root)
	}

	var books []BookFolder
	for _, author := range authors {
		if !author.IsDir() || skipLibraryDir(author.Name(), p.cfg.Library.UnclassifiedDirName) {
			continue
		}
		authorPath := filepath.Join(root, author.Name())
		titles, err := os.ReadDir(authorPath)
		if err != nil {
			p.logger.Warn("unreadable author directory", "dir", authorPath, "error", err)
			continue
		}
		for _, title := range titles {
			if !title.IsDir() || strings.HasPrefix(title.Name(), ".") {
				continue
			}
			book, ok := p.readBookFolder(author.Name(), title.Name(), filepath.Join(authorPath, title.Name()))
			if ok {
				books = append(books, book)
			}
		}
	}

	sort.Slice(books, func(i, j int) bool { return books[i].Path < books[j].Path })
	return books, nil
}

func (p *Pipeline) readBookFolder(author, title, path string) (BookFolder, bool) {
	entries, err := os.ReadDir(path)
	if err != nil {
		p.logger.Warn("unreadable book directory", "dir", path, "error", err)
		return BookFolder{}, false
	}

	book := BookFolder{Author: author, Title: title, Path: path}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case tagging.Supported(e.Name()):
			names = append(names, e.Name())
		case e.Name() == sidecar.FileName:
			book.HasSidecar = true
		}
	}
	if len(names) == 0 {
		return BookFolder{}, false
	}

	group.SortFileNames(names)
	book.AudioFiles = make([]string, len(names))
	for i, n := range names {
		book.AudioFiles[i] = filepath.Join(path, n)
	}
	return book, true
}

// skipLibraryDir filters the unclassified bucket, staging leftovers, and
// hidden directories out of library walks.
func skipLibraryDir(name, unclassified string) bool {
	return name == unclassified || strings.HasPrefix(name, ".")
}
