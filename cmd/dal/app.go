package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"dal/internal/core"
	"dal/internal/document"
	"dal/internal/history"
	"dal/internal/llm"
	"dal/internal/markup"
)

// session bundles a controller with the resources it owns.
type session struct {
	controller *core.Controller
	store      history.Store
	logger     core.Logger
}

// openSession wires the controller from the environment and flags.
func openSession(ctx context.Context, out io.Writer) (*session, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := core.NewLogger(cfg.LogLevel)
	core.SetDefault(logger)

	settings, err := core.LoadSettings(cmp.Or(settingsPath, cfg.SettingsFile))
	if err != nil {
		return nil, err
	}

	completer, err := core.NewCompleter(cfg)
	if err != nil {
		return nil, err
	}
	if useGenkit {
		completer, err = llm.NewGenkitCompleter(ctx, completer)
		if err != nil {
			return nil, fmt.Errorf("genkit: %w", err)
		}
	}

	var store history.Store
	if userID != "" {
		store, err = core.OpenHistoryStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	c := core.NewController(
		core.NewRealTaskExecutor(completer),
		store,
		core.WithLogger(logger),
		core.WithSettings(settings),
		core.WithIdentity(core.Identity(userID)),
	)
	c.Subscribe(printNotices(out))

	logger.Debug("session opened", "provider", cfg.Provider, "model", cfg.Model, "history", cfg.HistoryBackend, "genkit", useGenkit)
	return &session{controller: c, store: store, logger: logger}, nil
}

// Close flushes pending history writes before releasing the store.
func (s *session) Close() {
	s.controller.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close history store", "error", err)
		}
	}
}

func printNotices(out io.Writer) func(core.Event) {
	return func(ev core.Event) {
		if ev.Type == core.EventNotice {
			fmt.Fprintf(out, "⚠️  %s\n", ev.Message)
		}
	}
}

// loadDocument reads a file as markdown when it carries markup and as
// plain paragraphs otherwise.
func loadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimRight(string(data), "\n")
	if markup.HasMarkup(text) {
		return document.FromMarkdown(text), nil
	}
	return document.FromText(text), nil
}
