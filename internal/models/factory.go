package models

import (
	"time"

	"github.com/starford/notas/internal/uid"
)

// Factory builds complete notes from user input.
type Factory struct {
	newID func() string
	now   func() time.Time
}

// NewFactory returns a Factory with the given identifier source and clock.
// Nil arguments fall back to uid.New and time.Now.
func NewFactory(newID func() string, now func() time.Time) *Factory {
	if newID == nil {
		newID = uid.New
	}
	if now == nil {
		now = time.Now
	}
	return &Factory{newID: newID, now: now}
}

// DefaultFactory uses base-36 identifiers and the wall clock.
func DefaultFactory() *Factory {
	return NewFactory(nil, nil)
}

// Build returns a note with a fresh id and CreatedAt == UpdatedAt == now.
func (f *Factory) Build(in CreateNoteInput) Note {
	now := f.now()
	return Note{
		ID:        f.newID(),
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Now reads the factory clock.
func (f *Factory) Now() time.Time {
	return f.now()
}
