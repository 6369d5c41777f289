// Package backend defines the persistence capability shared by the local and
// remote note backends.
package backend

import (
	"context"

	"github.com/starford/notas/internal/models"
)

// Backend is the durable source of truth behind the notes store.
//
// Missing notes are reported as apperr.ErrNotFound (GetByID, Update) or a
// false result (Delete). Storage and transport failures are *apperr.OpError.
type Backend interface {
	List(ctx context.Context) ([]models.Note, error)
	GetByID(ctx context.Context, id string) (models.Note, error)
	Create(ctx context.Context, in models.CreateNoteInput) (models.Note, error)
	Update(ctx context.Context, id string, in models.UpdateNoteInput) (models.Note, error)
	Delete(ctx context.Context, id string) (bool, error)
	// Search returns notes whose title or content contains text, ignoring
	// case. Blank text behaves like List.
	Search(ctx context.Context, text string) ([]models.Note, error)
}

// Clearer is implemented by backends that can drop the whole collection.
type Clearer interface {
	Clear(ctx context.Context) error
}
