// Package local implements the backend that keeps every note in one JSON blob
// under a single key of device-local storage.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/backend"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/storage"
)

// DefaultKey is the storage key the collection lives under.
const DefaultKey = "@NotesApp:notes"

const (
	msgLoad   = "could not load notes"
	msgCreate = "could not save the note"
	msgUpdate = "could not update the note"
	msgDelete = "could not delete the note"
	msgClear  = "could not clear notes"
)

// errCorrupt marks a stored blob that does not decode as a note array.
var errCorrupt = errors.New("local: stored notes are not valid JSON")

var (
	_ backend.Backend = (*Backend)(nil)
	_ backend.Clearer = (*Backend)(nil)
)

// Backend stores the collection as a single blob. Every mutation is a full
// read-modify-write; mu admits one writer at a time so concurrent mutations
// cannot overwrite each other.
type Backend struct {
	kv      storage.Provider
	key     string
	factory *models.Factory
	logger  *slog.Logger

	mu sync.Mutex
}

// Option configures a Backend.
type Option func(*Backend)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(b *Backend) {
		if key != "" {
			b.key = key
		}
	}
}

// WithFactory sets the note factory (identifier source and clock).
func WithFactory(f *models.Factory) Option {
	return func(b *Backend) {
		if f != nil {
			b.factory = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// New creates a local backend over kv.
func New(kv storage.Provider, opts ...Option) *Backend {
	b := &Backend{
		kv:      kv,
		key:     DefaultKey,
		factory: models.DefaultFactory(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List returns the stored collection. A missing key or an undecodable blob
// yields an empty list; only storage I/O failures are reported.
func (b *Backend) List(ctx context.Context) ([]models.Note, error) {
	notes, err := b.load(ctx)
	if err != nil {
		if errors.Is(err, errCorrupt) {
			b.logger.Warn("local: discarding unreadable notes blob",
				slog.String("key", b.key), slog.String("error", err.Error()))
			return []models.Note{}, nil
		}
		return nil, b.fail("list", msgLoad, err)
	}
	return notes, nil
}

// GetByID scans the collection for id.
func (b *Backend) GetByID(ctx context.Context, id string) (models.Note, error) {
	notes, err := b.List(ctx)
	if err != nil {
		return models.Note{}, err
	}
	for _, n := range notes {
		if n.ID == id {
			return n, nil
		}
	}
	return models.Note{}, apperr.ErrNotFound
}

// Create appends a factory-built note and rewrites the collection.
func (b *Backend) Create(ctx context.Context, in models.CreateNoteInput) (models.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	notes, err := b.load(ctx)
	if err != nil {
		return models.Note{}, b.fail("create", msgCreate, err)
	}
	n := b.factory.Build(in)
	if err := b.save(ctx, append(notes, n)); err != nil {
		return models.Note{}, b.fail("create", msgCreate, err)
	}
	return n, nil
}

// Update merges the present fields of in over the stored note and refreshes
// UpdatedAt, which always moves forward even if the clock has not.
func (b *Backend) Update(ctx context.Context, id string, in models.UpdateNoteInput) (models.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	notes, err := b.load(ctx)
	if err != nil {
		return models.Note{}, b.fail("update", msgUpdate, err)
	}
	i := slices.IndexFunc(notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return models.Note{}, apperr.ErrNotFound
	}

	updated := in.Apply(notes[i])
	updated.UpdatedAt = b.nextUpdatedAt(notes[i].UpdatedAt)
	notes[i] = updated

	if err := b.save(ctx, notes); err != nil {
		return models.Note{}, b.fail("update", msgUpdate, err)
	}
	return updated, nil
}

// Delete removes id; the blob is rewritten only when something was removed.
func (b *Backend) Delete(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	notes, err := b.load(ctx)
	if err != nil {
		return false, b.fail("delete", msgDelete, err)
	}
	kept := slices.DeleteFunc(slices.Clone(notes), func(n models.Note) bool { return n.ID == id })
	if len(kept) == len(notes) {
		return false, nil
	}
	if err := b.save(ctx, kept); err != nil {
		return false, b.fail("delete", msgDelete, err)
	}
	return true, nil
}

// Search filters List by a case-insensitive substring of title or content.
func (b *Backend) Search(ctx context.Context, text string) ([]models.Note, error) {
	notes, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return notes, nil
	}
	return models.Filter(notes, text), nil
}

// Clear removes the whole collection.
func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.kv.Remove(ctx, b.key); err != nil {
		return b.fail("clear", msgClear, err)
	}
	return nil
}

// load reads and decodes the collection. A missing key is an empty
// collection; a blob that does not decode is errCorrupt.
func (b *Backend) load(ctx context.Context) ([]models.Note, error) {
	data, err := b.kv.Get(ctx, b.key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return []models.Note{}, nil
		}
		return nil, err
	}
	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, errors.Join(errCorrupt, err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

func (b *Backend) save(ctx context.Context, notes []models.Note) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, b.key, data)
}

func (b *Backend) nextUpdatedAt(prev time.Time) time.Time {
	now := b.factory.Now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

func (b *Backend) fail(op, msg string, err error) error {
	b.logger.Error("local: "+op+" failed", slog.String("key", b.key), slog.String("error", err.Error()))
	return apperr.Op(op, msg, err)
}
