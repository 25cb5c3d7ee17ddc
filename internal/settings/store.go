package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"go.uber.org/zap"
)

// StoreConfig describes the dependencies of a Store.
type StoreConfig struct {
	Store  storage.Store
	Logger *zap.Logger
}

// Store holds the current preferences and persists them under storage.SettingsKey.
// It never touches note data.
type Store struct {
	store  storage.Store
	logger *zap.Logger

	mu      sync.RWMutex
	current Settings
}

// NewStore returns a Store seeded with Defaults. Call Load to read saved values.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Store == nil {
		return nil, errors.New("settings: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{store: cfg.Store, logger: logger, current: Defaults()}, nil
}

// Load merges the saved record over Defaults. Keys missing from the saved record
// keep their default value; values that fail validation are replaced by defaults.
func (s *Store) Load(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := Defaults()
	payload, err := s.store.Get(ctx, storage.SettingsKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.logError("settings.load", "read_failed", err)
	default:
		candidate := Defaults()
		if decodeErr := json.Unmarshal(payload, &candidate); decodeErr != nil {
			s.logError("settings.load", "snapshot_invalid", decodeErr)
		} else {
			merged = sanitize(candidate)
		}
	}
	s.current = merged
	return merged
}

func sanitize(candidate Settings) Settings {
	defaults := Defaults()
	if candidate.FontSize < MinFontSize || candidate.FontSize > MaxFontSize {
		candidate.FontSize = defaults.FontSize
	}
	if !candidate.DefaultView.valid() {
		candidate.DefaultView = defaults.DefaultView
	}
	return candidate
}

// Current returns the in-memory preferences.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies patch, persists the result and returns it. Invalid values are
// rejected before anything changes.
func (s *Store) Update(ctx context.Context, patch Patch) (Settings, error) {
	if err := patch.validate(); err != nil {
		return s.Current(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = patch.apply(s.current)
	s.persistLocked(ctx, "settings.update")
	return s.current, nil
}

// ToggleDarkMode flips the dark mode flag and persists the result.
func (s *Store) ToggleDarkMode(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.DarkMode = !s.current.DarkMode
	s.persistLocked(ctx, "settings.toggle_dark_mode")
	return s.current
}

func (s *Store) persistLocked(ctx context.Context, operation string) {
	payload, err := json.Marshal(s.current)
	if err != nil {
		s.logError(operation, "encode_failed", err)
		return
	}
	if err := s.store.Set(ctx, storage.SettingsKey, payload); err != nil {
		s.logError(operation, "persist_failed", err)
	}
}

func (s *Store) logError(operation, reason string, err error) {
	s.logger.Error("settings store error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
