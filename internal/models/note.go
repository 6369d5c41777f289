// Package models defines the domain types for notas.
package models

import (
	"strings"
	"time"
)

// Note is the single persisted entity.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateNoteInput carries the user-supplied fields of a new note.
type CreateNoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteInput is a partial update; nil fields are left untouched.
type UpdateNoteInput struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Apply merges the present fields of in over n.
func (in UpdateNoteInput) Apply(n Note) Note {
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	return n
}

// Matches reports whether query occurs in the note's title or content,
// ignoring case. A blank query matches every note.
func Matches(n Note, query string) bool {
	if strings.TrimSpace(query) == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

// Filter returns the notes matching query, preserving order.
func Filter(notes []Note, query string) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if Matches(n, query) {
			out = append(out, n)
		}
	}
	return out
}
