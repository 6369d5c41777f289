// Package remote implements the backend that talks to the notes REST service.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/backend"
	"github.com/starford/notas/internal/models"
)

const (
	msgLoad   = "could not load notes"
	msgGet    = "could not load the note"
	msgCreate = "could not save the note"
	msgUpdate = "could not update the note"
	msgDelete = "could not delete the note"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

var _ backend.Backend = (*Backend)(nil)

// Backend is an HTTP client for the /notas/ resource.
type Backend struct {
	client *resty.Client
	logger *slog.Logger

	mu      sync.Mutex
	last    []models.Note
	fetched bool
}

type options struct {
	timeout    time.Duration
	token      string
	logger     *slog.Logger
	httpClient *http.Client
}

// Option configures a Backend.
type Option func(*options)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient uses hc as the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New creates a remote backend rooted at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) *Backend {
	o := options{timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var c *resty.Client
	if o.httpClient != nil {
		c = resty.NewWithClient(o.httpClient)
	} else {
		c = resty.New()
	}
	c.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(o.timeout).
		SetHeader("Accept", "application/json")
	if o.token != "" {
		c.SetAuthToken(o.token)
	}

	return &Backend{client: c, logger: o.logger}
}

// List fetches every note and remembers the result for Search.
func (b *Backend) List(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&notes).
		Get("/notas/")
	if err := b.check("list", msgLoad, resp, err); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}

	b.mu.Lock()
	b.last = slices.Clone(notes)
	b.fetched = true
	b.mu.Unlock()

	return notes, nil
}

// GetByID fetches one note. A 404 is apperr.ErrNotFound; anything else that
// fails is an *apperr.OpError.
func (b *Backend) GetByID(ctx context.Context, id string) (models.Note, error) {
	var n models.Note
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&n).
		Get("/notas/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return models.Note{}, apperr.ErrNotFound
	}
	if err := b.check("get", msgGet, resp, err); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// Create posts a new note; the server assigns id and timestamps.
func (b *Backend) Create(ctx context.Context, in models.CreateNoteInput) (models.Note, error) {
	var n models.Note
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&n).
		Post("/notas/")
	if err := b.check("create", msgCreate, resp, err); err != nil {
		return models.Note{}, err
	}
	b.remember(n)
	return n, nil
}

// Update sends only the present fields of in.
func (b *Backend) Update(ctx context.Context, id string, in models.UpdateNoteInput) (models.Note, error) {
	var n models.Note
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(in).
		SetResult(&n).
		Put("/notas/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return models.Note{}, apperr.ErrNotFound
	}
	if err := b.check("update", msgUpdate, resp, err); err != nil {
		return models.Note{}, err
	}
	b.remember(n)
	return n, nil
}

// Delete reports false without error when the server answers 404.
func (b *Backend) Delete(ctx context.Context, id string) (bool, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Delete("/notas/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	if err := b.check("delete", msgDelete, resp, err); err != nil {
		return false, err
	}
	b.forget(id)
	return true, nil
}

// Search filters the most recent List result. If List has never succeeded
// it is called once first.
func (b *Backend) Search(ctx context.Context, text string) ([]models.Note, error) {
	b.mu.Lock()
	notes, fetched := slices.Clone(b.last), b.fetched
	b.mu.Unlock()

	if !fetched {
		var err error
		if notes, err = b.List(ctx); err != nil {
			return nil, err
		}
	}
	if notes == nil {
		notes = []models.Note{}
	}
	if strings.TrimSpace(text) == "" {
		return notes, nil
	}
	return models.Filter(notes, text), nil
}

// remember applies a successful write to the snapshot Search filters.
func (b *Backend) remember(n models.Note) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fetched {
		return
	}
	if i := slices.IndexFunc(b.last, func(m models.Note) bool { return m.ID == n.ID }); i >= 0 {
		b.last[i] = n
		return
	}
	b.last = append(b.last, n)
}

func (b *Backend) forget(id string) {
	b.mu.Lock()
	b.last = slices.DeleteFunc(b.last, func(n models.Note) bool { return n.ID == id })
	b.mu.Unlock()
}

// check turns a transport error or non-2xx response into an *apperr.OpError.
// The cause is logged and never surfaced to callers.
func (b *Backend) check(op, msg string, resp *resty.Response, err error) error {
	if err != nil {
		b.logger.Error("remote: "+op+" failed", slog.String("error", err.Error()))
		return apperr.Op(op, msg, nil)
	}
	if resp.IsError() {
		b.logger.Error("remote: "+op+" failed",
			slog.Int("status", resp.StatusCode()),
			slog.String("body", truncate(resp.String(), 512)))
		return apperr.Op(op, msg, nil)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}
