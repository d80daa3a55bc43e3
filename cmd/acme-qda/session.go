package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/acmehost"
	"github.com/cptaffe/acme-qda/internal/config"
	"github.com/cptaffe/acme-qda/internal/logger"
	"github.com/cptaffe/acme-qda/internal/project"
	"github.com/cptaffe/acme-qda/internal/store"
)

var errNoDocument = errors.New("no document selected; use --doc or run from the document's acme window")

// session is one loaded project plus the styles configuration.
type session struct {
	path  string
	store *store.Store
	files map[string]string
	cfg   config.Config
}

// loadSession loads the project and styles file.  Records the store
// rejects are logged; when strict is set they are an error instead, so
// that a later save does not silently drop them.
func loadSession(ctx context.Context, strict bool) (*session, error) {
	l := logger.L(ctx)

	cfg, err := config.Load(stylesPath)
	if err != nil {
		return nil, fmt.Errorf("load styles: %w", err)
	}
	s, err := project.Load(projectPath)
	if s == nil {
		return nil, err
	}
	if err != nil {
		if strict {
			return nil, err
		}
		for _, e := range multierr.Errors(err) {
			l.Warn("skipped record", zap.Error(e))
		}
	}
	files, err := project.Files(projectPath)
	if err != nil {
		return nil, err
	}
	l.Debug("loaded project",
		zap.String("path", projectPath),
		zap.Int("documents", len(s.Documents())),
		zap.Int("codes", len(s.Codes())))
	return &session{path: projectPath, store: s, files: files, cfg: cfg}, nil
}

// document resolves --doc, then the document shown in win, then the only
// document of the project.
func (s *session) document(win *acmehost.Window) (*annot.Document, error) {
	if docFlag != "" {
		if d, ok := s.store.Document(docFlag); ok {
			return d, nil
		}
		if d, ok := s.store.DocumentByTitle(docFlag); ok {
			return d, nil
		}
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownDocument, docFlag)
	}
	if win != nil {
		name, err := win.Name()
		if err != nil {
			return nil, err
		}
		if id, ok := acmehost.MatchDocument(name, filepath.Dir(s.path), s.files); ok {
			if d, ok := s.store.Document(id); ok {
				return d, nil
			}
		}
	}
	if docs := s.store.Documents(); len(docs) == 1 {
		return docs[0], nil
	}
	return nil, errNoDocument
}

func (s *session) save() error {
	return project.Save(s.path, s.store, s.files)
}

// openWindow opens $winid, or returns nil when not running in acme.
func openWindow() (*acmehost.Window, error) {
	id, err := acmehost.WinID()
	if errors.Is(err, acmehost.ErrNoWindow) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acmehost.Open(id)
}
