package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"story-engine/internal/models"
	"story-engine/internal/repository"
)

// SettingsService stores the client-facing settings blob and the
// first-launch marker.
type SettingsService interface {
	Settings(ctx context.Context, userID string) (models.GameSettings, error)
	UpdateSettings(ctx context.Context, userID string, settings models.GameSettings) error
	HasPlayedBefore(ctx context.Context, userID string) (bool, error)
	MarkPlayed(ctx context.Context, userID string) error
}

type settingsService struct {
	store  repository.KVStore
	logger *zap.Logger
}

func NewSettingsService(store repository.KVStore, logger *zap.Logger) SettingsService {
	return &settingsService{
		store:  store,
		logger: logger.Named("SettingsService"),
	}
}

func (s *settingsService) Settings(ctx context.Context, userID string) (models.GameSettings, error) {
	settings := models.DefaultGameSettings()
	if _, err := loadJSON(ctx, s.store, userID, models.KeyGameSettings, &settings); err != nil {
		return models.GameSettings{}, err
	}
	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID string, settings models.GameSettings) error {
	if settings.TextSpeed <= 0 {
		return models.ErrInvalidInput
	}
	return storeJSON(ctx, s.store, userID, models.KeyGameSettings, settings)
}

func (s *settingsService) HasPlayedBefore(ctx context.Context, userID string) (bool, error) {
	raw, err := s.store.Get(ctx, userKey(userID, models.KeyHasPlayedBefore))
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return raw == "true", nil
}

func (s *settingsService) MarkPlayed(ctx context.Context, userID string) error {
	return s.store.Set(ctx, userKey(userID, models.KeyHasPlayedBefore), "true")
}
