package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anikettagor2/eco-submit/model"
)

const settingsObjectName = "config/settings.json"

// Blob is the slice of the blob store the document services need.
// *MinioService satisfies it; tests substitute an in-memory fake.
type Blob interface {
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
}

// SettingsStore holds the single admin settings document, cached in memory
// and persisted to the blob store on every update
type SettingsStore struct {
	blob     Blob
	mu       sync.RWMutex
	settings model.Settings
}

func NewSettingsStore(blob Blob) *SettingsStore {
	return &SettingsStore{blob: blob}
}

// Load pulls the persisted settings document into the cache. A missing
// document is not an error; the store starts with empty settings.
func (s *SettingsStore) Load(ctx context.Context) error {
	data, err := s.blob.DownloadFile(ctx, settingsObjectName)
	if err != nil {
		slog.Info("no persisted settings found, starting with defaults", "error", err)
		return nil
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse settings document: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Get returns a snapshot of the current settings. Workflows that span
// multiple steps take one snapshot up front so a concurrent admin update
// cannot change templates mid-run.
func (s *SettingsStore) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings document and persists it
func (s *SettingsStore) Update(ctx context.Context, settings model.Settings) error {
	settings.UpdatedAt = time.Now()

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.blob.UploadBytes(ctx, settingsObjectName, data, "application/json"); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}
