// Package database owns the application's data stack: the chatdb handle,
// the text analyzer and the analytics engine assembled from both.
package database

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/Mymoliy/echotrace/internal/analysis"
	"github.com/Mymoliy/echotrace/internal/chatdb"
	"github.com/Mymoliy/echotrace/internal/echotrace/conf"
	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/internal/model"
	"github.com/Mymoliy/echotrace/internal/segment"
)

type Service struct {
	db       *chatdb.DB
	analyzer *segment.Analyzer
	engine   *analysis.Engine

	mu          sync.Mutex
	fingerprint string
}

// New opens the databases and assembles the analytics engine. A watch
// callback reloads handles whenever the collector republishes a file, so
// the service keeps serving across archive swaps without a restart.
func New(cfg *conf.Config) (*Service, error) {
	db, err := chatdb.Open(cfg.ArchivePath, cfg.RosterPath)
	if err != nil {
		return nil, err
	}

	analyzer, err := segment.New(cfg.Analyzer.Stopwords...)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Service{
		db:       db,
		analyzer: analyzer,
		engine:   analysis.NewEngineWithOptions(db.Messages(), db.Roster(), analyzer, cfg.Analyzer.ToOptions()),
	}
	if fp, err := db.Fingerprint(); err == nil {
		s.fingerprint = fp
	}

	db.Watch(func(fsnotify.Event) error {
		return s.Reload()
	})

	return s, nil
}

// Engine exposes the analytics engine. Sources resolve their files per
// query, so the same engine stays valid across reloads.
func (s *Service) Engine() *analysis.Engine {
	return s.engine
}

// Reload reopens database handles when the files on disk changed. The
// fingerprint comparison makes repeated triggers for one replacement cheap.
func (s *Service) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp, err := s.db.Fingerprint()
	if err != nil {
		return err
	}
	if fp == s.fingerprint {
		log.Debug().Msg("databases unchanged, reload skipped")
		return nil
	}

	if err := s.db.Reload(); err != nil {
		return err
	}
	s.fingerprint = fp
	log.Info().Str("fingerprint", fp).Msg("databases reloaded")
	return nil
}

// ResolveAvatar looks up a contact's avatar URL in the roster.
func (s *Service) ResolveAvatar(ctx context.Context, username string) (*model.Avatar, error) {
	if username == "" {
		return nil, errors.InvalidArg("username")
	}

	avatars, err := s.db.Roster().ResolveAvatars(ctx, []string{username})
	if err != nil {
		return nil, err
	}
	url, ok := avatars[username]
	if !ok || url == "" {
		return nil, errors.NotFound("avatar for " + username)
	}
	return &model.Avatar{UserName: username, URL: url}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}
