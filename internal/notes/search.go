package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/notas/internal/models"
)

// SearchMode selects how Search computes its results.
type SearchMode string

const (
	// SearchLocal filters the cached collection; no backend round-trip.
	SearchLocal SearchMode = "local"
	// SearchBackend delegates to Backend.Search.
	SearchBackend SearchMode = "backend"
)

// ParseSearchMode accepts "local" or "backend" (case-insensitive).
func ParseSearchMode(s string) (SearchMode, error) {
	switch m := SearchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SearchLocal, SearchBackend:
		return m, nil
	case "":
		return SearchLocal, nil
	default:
		return "", fmt.Errorf("notes: unknown search mode %q", s)
	}
}

// Search sets the query and recomputes the results. A blank query matches
// every note. In local mode the results follow later changes to the cache;
// in backend mode they are refreshed only by the next Search. Results of a
// backend search that was overtaken by a newer Search or ClearSearch are
// returned to the caller but not stored.
func (s *Store) Search(ctx context.Context, query string) ([]models.Note, error) {
	if s.mode == SearchBackend {
		var seq uint64
		s.update(func() {
			s.searchSeq++
			seq = s.searchSeq
			s.query = query
			s.searching = true
		})
		results, err := s.backend.Search(ctx, query)
		if err != nil {
			s.record("search", err)
			s.update(func() {
				if s.searchSeq == seq {
					s.results = []models.Note{}
				}
			})
			return nil, err
		}
		if results == nil {
			results = []models.Note{}
		}
		s.update(func() {
			if s.searchSeq == seq {
				s.results = results
			}
		})
		return cloneNotes(results), nil
	}

	var results []models.Note
	s.update(func() {
		s.searchSeq++
		s.query = query
		s.searching = true
		s.results = models.Filter(s.notes, query)
		results = cloneNotes(s.results)
	})
	return results, nil
}

// ClearSearch resets the query and results; the cached notes are untouched.
func (s *Store) ClearSearch() {
	s.update(func() {
		s.searchSeq++
		s.query = ""
		s.searching = false
		s.results = []models.Note{}
	})
}

func cloneNotes(notes []models.Note) []models.Note {
	out := make([]models.Note, len(notes))
	copy(out, notes)
	return out
}
