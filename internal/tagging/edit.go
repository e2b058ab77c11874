package tagging

import (
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
)

// EditableFields lists the metadata fields edit mode can change.
var EditableFields = []string{
	"title", "subtitle", "author", "narrator", "series",
	"genre", "year", "publisher", "description", "language",
}

// ApplyEdit mutates one field of meta. When from is empty the field is
// set to to outright; otherwise only a value matching from is replaced,
// and the book is left untouched when nothing matches. Returns whether
// anything changed.
func ApplyEdit(meta *domain.BookMetadata, field, from, to string) (bool, error) {
	switch strings.ToLower(field) {
	case "title":
		return editString(&meta.Title, from, to), nil
	case "subtitle":
		return editString(&meta.Subtitle, from, to), nil
	case "author":
		return editList(&meta.Authors, from, to), nil
	case "narrator":
		return editList(&meta.Narrators, from, to), nil
	case "genre":
		return editList(&meta.Genres, from, to), nil
	case "series":
		return editSeries(&meta.Series, from, to), nil
	case "year":
		return editString(&meta.PublishYear, from, to), nil
	case "publisher":
		return editString(&meta.Publisher, from, to), nil
	case "description":
		return editString(&meta.Description, from, to), nil
	case "language":
		return editString(&meta.Language, from, to), nil
	default:
		return false, errors.Validationf("unknown field %q, valid fields: %s",
			field, strings.Join(EditableFields, ", "))
	}
}

func editString(field *string, from, to string) bool {
	if from != "" && *field != from {
		return false
	}
	if *field == to {
		return false
	}
	*field = to
	return true
}

func editList(list *[]string, from, to string) bool {
	if from == "" {
		if len(*list) == 1 && (*list)[0] == to {
			return false
		}
		*list = []string{to}
		return true
	}
	changed := false
	for i, v := range *list {
		if v == from {
			(*list)[i] = to
			changed = true
		}
	}
	return changed
}

func editSeries(series *[]domain.SeriesInfo, from, to string) bool {
	if from == "" {
		if len(*series) == 1 && (*series)[0].Name == to {
			return false
		}
		*series = []domain.SeriesInfo{{Name: to}}
		return true
	}
	changed := false
	for i, s := range *series {
		if s.Name == from {
			(*series)[i].Name = to
			changed = true
		}
	}
	return changed
}
