package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"story-engine/internal/models"
	"story-engine/internal/repository"
)

// SaveSnapshot is the playback state captured into a slot.
type SaveSnapshot struct {
	ChapterID         int
	SceneIndex        int
	RelationshipScore int
	Choices           map[string]string
	Achievements      []string
}

// SaveService manages the fixed array of save slots. The whole array is
// persisted on every write; empty slots stay as JSON nulls so slot
// positions are stable.
type SaveService interface {
	List(ctx context.Context, userID string) ([]*models.SaveRecord, error)
	Save(ctx context.Context, userID string, slot int, snap SaveSnapshot) (*models.SaveRecord, error)
	Load(ctx context.Context, userID string, slot int) (*models.SaveRecord, error)
	Delete(ctx context.Context, userID string, slot int) error
}

type saveService struct {
	store  repository.KVStore
	logger *zap.Logger
	now    func() time.Time
}

func NewSaveService(store repository.KVStore, logger *zap.Logger) SaveService {
	return &saveService{
		store:  store,
		logger: logger.Named("SaveService"),
		now:    time.Now,
	}
}

// List returns all slots in order. Absent storage yields an array of nils.
func (s *saveService) List(ctx context.Context, userID string) ([]*models.SaveRecord, error) {
	slots := make([]*models.SaveRecord, models.SaveSlotCount)
	if _, err := loadJSON(ctx, s.store, userID, models.KeyGameSaves, &slots); err != nil {
		return nil, err
	}
	// tolerate arrays written with a different slot count
	if len(slots) != models.SaveSlotCount {
		normalized := make([]*models.SaveRecord, models.SaveSlotCount)
		copy(normalized, slots)
		slots = normalized
	}
	return slots, nil
}

func (s *saveService) Save(ctx context.Context, userID string, slot int, snap SaveSnapshot) (*models.SaveRecord, error) {
	if slot < 0 || slot >= models.SaveSlotCount {
		return nil, models.ErrSlotIndexOutOfRange
	}
	slots, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	ts := s.now().UnixMilli()
	rec := &models.SaveRecord{
		ID:                fmt.Sprintf("save_%d", ts),
		ChapterID:         snap.ChapterID,
		SceneIndex:        snap.SceneIndex,
		Timestamp:         ts,
		RelationshipScore: snap.RelationshipScore,
		Choices:           copyStringMap(snap.Choices),
		Achievements:      append([]string{}, snap.Achievements...),
	}
	slots[slot] = rec

	if err := storeJSON(ctx, s.store, userID, models.KeyGameSaves, slots); err != nil {
		return nil, err
	}
	s.logger.Info("Game saved",
		zap.String("userId", userID),
		zap.Int("slot", slot),
		zap.Int("chapterId", snap.ChapterID))
	return rec, nil
}

func (s *saveService) Load(ctx context.Context, userID string, slot int) (*models.SaveRecord, error) {
	if slot < 0 || slot >= models.SaveSlotCount {
		return nil, models.ErrSlotIndexOutOfRange
	}
	slots, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if slots[slot] == nil {
		return nil, models.ErrEmptySlot
	}
	return slots[slot], nil
}

// Delete empties the slot. Deleting an already empty slot is not an error.
func (s *saveService) Delete(ctx context.Context, userID string, slot int) error {
	if slot < 0 || slot >= models.SaveSlotCount {
		return models.ErrSlotIndexOutOfRange
	}
	slots, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	if slots[slot] == nil {
		return nil
	}
	slots[slot] = nil
	return storeJSON(ctx, s.store, userID, models.KeyGameSaves, slots)
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
