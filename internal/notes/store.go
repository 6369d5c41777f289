// Package notes implements the notes store: the in-memory cache of notes plus
// loading, error and search state, mediating every call to a backend.
package notes

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/backend"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/validate"
)

// State is a snapshot of the store's observable fields.
type State struct {
	Notes         []models.Note
	Loading       bool
	Error         string
	SearchQuery   string
	SearchResults []models.Note
}

// Store owns the cached collection. It is safe for concurrent use; mutations
// run one at a time.
type Store struct {
	backend  backend.Backend
	mode     SearchMode
	logger   *slog.Logger
	observer func(State)

	writes *semaphore.Weighted

	mu        sync.RWMutex
	notes     []models.Note
	inflight  int
	errMsg    string
	query     string
	searching bool
	searchSeq uint64
	results   []models.Note
}

// Option configures a Store.
type Option func(*Store)

// WithSearchMode selects the search strategy. The default is SearchLocal.
func WithSearchMode(m SearchMode) Option {
	return func(s *Store) {
		if m != "" {
			s.mode = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithObserver registers fn to receive a snapshot after every state change.
func WithObserver(fn func(State)) Option {
	return func(s *Store) { s.observer = fn }
}

// New creates a store over b.
func New(b backend.Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		mode:    SearchLocal,
		logger:  slog.Default(),
		writes:  semaphore.NewWeighted(1),
		notes:   []models.Note{},
		results: []models.Note{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// LoadAll replaces the cache with the backend's collection. The previous
// error is cleared first; a failure is recorded and returned.
func (s *Store) LoadAll(ctx context.Context) error {
	done := s.beginLoading()
	defer done()

	s.update(func() { s.errMsg = "" })
	return s.reload(ctx)
}

// Notes reloads the collection and returns the cache.
func (s *Store) Notes(ctx context.Context) ([]models.Note, error) {
	err := s.LoadAll(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notes), err
}

// GetByID fetches one note from the backend; the cache need not be loaded.
// A missing note is apperr.ErrNotFound and is not recorded as an error.
func (s *Store) GetByID(ctx context.Context, id string) (models.Note, error) {
	n, err := s.backend.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Note{}, err
		}
		s.record("get", err)
		return models.Note{}, err
	}
	return n, nil
}

// Create validates in, creates it on the backend and refetches the collection.
// A failed refetch is recorded but does not fail the create.
func (s *Store) Create(ctx context.Context, in models.CreateNoteInput) (models.Note, error) {
	if err := validate.Create(in); err != nil {
		return models.Note{}, err
	}
	release, err := s.acquireWrite(ctx)
	if err != nil {
		return models.Note{}, err
	}
	defer release()
	done := s.beginLoading()
	defer done()

	ctx = context.WithoutCancel(ctx)
	n, err := s.backend.Create(ctx, in)
	if err != nil {
		s.record("create", err)
		return models.Note{}, err
	}
	_ = s.reload(ctx)
	return n, nil
}

// Update validates in and applies it on the backend, then refetches the
// collection. A missing note is apperr.ErrNotFound and is not recorded.
func (s *Store) Update(ctx context.Context, id string, in models.UpdateNoteInput) (models.Note, error) {
	if err := validate.Update(in); err != nil {
		return models.Note{}, err
	}
	release, err := s.acquireWrite(ctx)
	if err != nil {
		return models.Note{}, err
	}
	defer release()
	done := s.beginLoading()
	defer done()

	ctx = context.WithoutCancel(ctx)
	n, err := s.backend.Update(ctx, id, in)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.record("update", err)
		}
		return models.Note{}, err
	}
	_ = s.reload(ctx)
	return n, nil
}

// Delete removes id on the backend and splices it out of the cache. It
// reports false without error when nothing matched.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	release, err := s.acquireWrite(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	done := s.beginLoading()
	defer done()

	deleted, err := s.backend.Delete(context.WithoutCancel(ctx), id)
	if err != nil {
		s.record("delete", err)
		return false, err
	}
	if !deleted {
		return false, nil
	}
	s.update(func() {
		s.setNotes(slices.DeleteFunc(slices.Clone(s.notes), func(n models.Note) bool { return n.ID == id }))
	})
	return true, nil
}

// ClearAll removes every note. It needs a backend that implements
// backend.Clearer and returns apperr.ErrUnsupported otherwise.
func (s *Store) ClearAll(ctx context.Context) error {
	c, ok := s.backend.(backend.Clearer)
	if !ok {
		return apperr.ErrUnsupported
	}
	release, err := s.acquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()
	done := s.beginLoading()
	defer done()

	if err := c.Clear(context.WithoutCancel(ctx)); err != nil {
		s.record("clear", err)
		return err
	}
	s.update(func() { s.setNotes([]models.Note{}) })
	return nil
}

func (s *Store) reload(ctx context.Context) error {
	notes, err := s.backend.List(ctx)
	if err != nil {
		s.record("list", err)
		return err
	}
	s.update(func() { s.setNotes(notes) })
	return nil
}

// acquireWrite waits for the single write slot. Only a caller still waiting
// can be cancelled; once acquired the mutation runs to completion.
func (s *Store) acquireWrite(ctx context.Context) (func(), error) {
	if err := s.writes.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.writes.Release(1) }, nil
}

// beginLoading marks an operation in flight. The returned func must be
// called exactly once, on every exit path.
func (s *Store) beginLoading() func() {
	s.update(func() { s.inflight++ })
	var once sync.Once
	return func() {
		once.Do(func() { s.update(func() { s.inflight-- }) })
	}
}

func (s *Store) record(op string, err error) {
	s.logger.Error("notes: "+op+" failed", slog.String("error", err.Error()))
	msg := apperr.UserMessage(err)
	s.update(func() { s.errMsg = msg })
}

// setNotes must be called with mu held.
func (s *Store) setNotes(notes []models.Note) {
	if notes == nil {
		notes = []models.Note{}
	}
	s.notes = notes
	if s.searching && s.mode == SearchLocal {
		s.results = models.Filter(s.notes, s.query)
	}
}

// update applies fn under the write lock and then notifies the observer.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshot()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(snap)
	}
}

func (s *Store) snapshot() State {
	return State{
		Notes:         slices.Clone(s.notes),
		Loading:       s.inflight > 0,
		Error:         s.errMsg,
		SearchQuery:   s.query,
		SearchResults: slices.Clone(s.results),
	}
}
