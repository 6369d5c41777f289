// Package validate checks note inputs before they reach a backend.
package validate

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/models"
)

// MaxTitleLength is the longest trimmed title accepted, in characters.
const MaxTitleLength = 100

const (
	MsgTitleRequired = "title is required"
	MsgTitleTooLong  = "title too long"
)

var titleRules = []validation.Rule{
	validation.Required.Error(MsgTitleRequired),
	validation.RuneLength(0, MaxTitleLength).Error(MsgTitleTooLong),
}

// Create validates a new note.
func Create(in models.CreateNoteInput) error {
	return title(in.Title)
}

// Update validates a partial update. An absent title is fine; a present one
// must satisfy the same rules as on create.
func Update(in models.UpdateNoteInput) error {
	if in.Title == nil {
		return nil
	}
	return title(*in.Title)
}

func title(raw string) error {
	if err := validation.Validate(strings.TrimSpace(raw), titleRules...); err != nil {
		return &apperr.ValidationError{Field: "title", Message: err.Error()}
	}
	return nil
}
