package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starford/notas/internal/backend"
	"github.com/starford/notas/internal/backend/local"
	"github.com/starford/notas/internal/backend/remote"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/notes"
	"github.com/starford/notas/internal/storage"
)

// wiring is the backend built from config plus what has to be released with it.
type wiring struct {
	backend backend.Backend
	fs      *storage.FS // set for the file driver, used by the watcher
	key     string
	closeFn func() error
}

func (w *wiring) Close() error {
	if w.closeFn == nil {
		return nil
	}
	return w.closeFn()
}

func noteFactory(idScheme string) *models.Factory {
	if idScheme == IDSchemeUUID {
		return models.NewFactory(uuid.NewString, nil)
	}
	return models.DefaultFactory()
}

func buildBackend(cfg *Config, logger *slog.Logger, factory *models.Factory) (*wiring, error) {
	if cfg.Backend.Kind == BackendRemote {
		rc := cfg.Backend.Remote
		b := remote.New(rc.BaseURL,
			remote.WithTimeout(rc.Timeout),
			remote.WithToken(rc.Token),
			remote.WithLogger(logger),
		)
		return &wiring{backend: b}, nil
	}

	lc := cfg.Backend.Local
	opts := []local.Option{
		local.WithKey(lc.Key),
		local.WithFactory(factory),
		local.WithLogger(logger),
	}

	switch lc.Driver {
	case DriverFile:
		if err := os.MkdirAll(lc.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(lc.Path)
		if err != nil {
			return nil, fmt.Errorf("init file storage: %w", err)
		}
		return &wiring{backend: local.New(fs, opts...), fs: fs, key: lc.Key}, nil

	default:
		if dir := filepath.Dir(lc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		db, err := storage.OpenSQLite(lc.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite storage: %w", err)
		}
		return &wiring{backend: local.New(db, opts...), key: lc.Key, closeFn: db.Close}, nil
	}
}

// OpenStore builds the configured backend and a notes store over it. The
// returned func releases the backend's resources.
func OpenStore(cfg *Config, logger *slog.Logger, opts ...notes.Option) (*notes.Store, func() error, error) {
	w, err := buildBackend(cfg, logger, models.DefaultFactory())
	if err != nil {
		return nil, nil, err
	}
	return newStore(cfg, w, logger, opts...), w.Close, nil
}

func newStore(cfg *Config, w *wiring, logger *slog.Logger, opts ...notes.Option) *notes.Store {
	mode, err := notes.ParseSearchMode(cfg.Search.Mode)
	if err != nil {
		logger.Warn("unknown search mode, using local", slog.String("mode", cfg.Search.Mode))
		mode = notes.SearchLocal
	}
	base := []notes.Option{notes.WithSearchMode(mode), notes.WithLogger(logger)}
	return notes.New(w.backend, append(base, opts...)...)
}
