package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/zenotes/internal/config"
	"github.com/MarcoPoloResearchLab/zenotes/internal/database"
	"github.com/MarcoPoloResearchLab/zenotes/internal/logging"
	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/MarcoPoloResearchLab/zenotes/internal/settings"
	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"github.com/MarcoPoloResearchLab/zenotes/internal/summarize"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	errNoteNotFound    = errors.New("note not found")
	errAmbiguousNoteID = errors.New("note id prefix is ambiguous")
)

// application holds the services shared by every subcommand.
type application struct {
	config     config.AppConfig
	logger     *zap.Logger
	repository *notes.Repository
	settings   *settings.Store
	summarizer *summarize.Client
	closers    []func() error
}

func openApplication(ctx context.Context) (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	app := &application{config: appConfig, logger: logger}
	store, err := app.openStore()
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.repository, err = notes.NewRepository(notes.RepositoryConfig{
		Store:      store,
		IDProvider: notes.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.settings, err = settings.NewStore(settings.StoreConfig{Store: store, Logger: logger})
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	source := app.repository.Load(ctx)
	app.settings.Load(ctx)
	logger.Debug("notes loaded", zap.String("source", string(source)), zap.String("backend", appConfig.StorageBackend))

	app.summarizer = summarize.NewClient(summarize.ClientConfig{
		APIKey:     appConfig.GeminiAPIKey,
		Model:      appConfig.GeminiModel,
		Endpoint:   appConfig.GeminiEndpoint,
		APIVersion: appConfig.GeminiVersion,
		Timeout:    appConfig.GeminiTimeout,
		Logger:     logger,
	})
	return app, nil
}

func (a *application) openStore() (storage.Store, error) {
	switch a.config.StorageBackend {
	case config.StorageBackendSQLite:
		db, err := database.OpenSQLite(a.config.DatabasePath, a.logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		return storage.NewSQLiteStore(db, nil)
	default:
		return storage.OpenDirectory(a.config.DataDir, a.logger)
	}
}

// Close releases the storage backend and flushes the logger.
func (a *application) Close() error {
	var errs []error
	for index := len(a.closers) - 1; index >= 0; index-- {
		if err := a.closers[index](); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// resolveNote accepts a full note id or a unique prefix of one.
func resolveNote(repository *notes.Repository, reference string) (notes.Note, error) {
	reference = strings.TrimSpace(reference)
	if note, ok := repository.GetNote(reference); ok {
		return note, nil
	}
	if reference == "" {
		return notes.Note{}, errNoteNotFound
	}
	var matches []notes.Note
	for _, note := range repository.Notes() {
		if strings.HasPrefix(note.ID, reference) {
			matches = append(matches, note)
		}
	}
	switch len(matches) {
	case 0:
		return notes.Note{}, fmt.Errorf("%w: %s", errNoteNotFound, reference)
	case 1:
		return matches[0], nil
	default:
		return notes.Note{}, fmt.Errorf("%w: %s matches %d notes", errAmbiguousNoteID, reference, len(matches))
	}
}

// withApplication opens the application for the duration of run.
func withApplication(ctx context.Context, run func(*application) error) error {
	app, err := openApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck
	return run(app)
}
