package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-engine/internal/models"
	"story-engine/internal/repository"
	"story-engine/internal/service"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	svc := service.NewSaveService(repository.NewMemoryKVStore(), zap.NewNop())
	ctx := context.Background()

	snap := service.SaveSnapshot{
		ChapterID:         3,
		SceneIndex:        7,
		RelationshipScore: 60,
		Choices:           map[string]string{"choice_response": "challenge"},
		Achievements:      []string{"first_chapter"},
	}
	saved, err := svc.Save(ctx, "u1", 2, snap)
	require.NoError(t, err)
	assert.Contains(t, saved.ID, "save_")
	assert.Positive(t, saved.Timestamp)

	loaded, err := svc.Load(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, 3, loaded.ChapterID)
	assert.Equal(t, 7, loaded.SceneIndex)
	assert.Equal(t, map[string]string{"choice_response": "challenge"}, loaded.Choices)
}

func TestSaveSnapshotIsDetachedFromCaller(t *testing.T) {
	svc := service.NewSaveService(repository.NewMemoryKVStore(), zap.NewNop())
	ctx := context.Background()

	choices := map[string]string{"a": "b"}
	_, err := svc.Save(ctx, "u1", 0, service.SaveSnapshot{ChapterID: 1, Choices: choices})
	require.NoError(t, err)

	choices["a"] = "mutated"

	loaded, err := svc.Load(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.Choices["a"])
}

func TestListKeepsSlotPositions(t *testing.T) {
	svc := service.NewSaveService(repository.NewMemoryKVStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Save(ctx, "u1", 4, service.SaveSnapshot{ChapterID: 2})
	require.NoError(t, err)

	slots, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, slots, models.SaveSlotCount)
	for i, rec := range slots {
		if i == 4 {
			assert.NotNil(t, rec)
		} else {
			assert.Nil(t, rec)
		}
	}
}

func TestSlotRangeChecks(t *testing.T) {
	svc := service.NewSaveService(repository.NewMemoryKVStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Save(ctx, "u1", -1, service.SaveSnapshot{})
	assert.ErrorIs(t, err, models.ErrSlotIndexOutOfRange)
	_, err = svc.Save(ctx, "u1", models.SaveSlotCount, service.SaveSnapshot{})
	assert.ErrorIs(t, err, models.ErrSlotIndexOutOfRange)
	_, err = svc.Load(ctx, "u1", models.SaveSlotCount)
	assert.ErrorIs(t, err, models.ErrSlotIndexOutOfRange)
	assert.ErrorIs(t, svc.Delete(ctx, "u1", -1), models.ErrSlotIndexOutOfRange)
}

func TestDeleteEmptiesSlot(t *testing.T) {
	svc := service.NewSaveService(repository.NewMemoryKVStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Save(ctx, "u1", 1, service.SaveSnapshot{ChapterID: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", 1))

	_, err = svc.Load(ctx, "u1", 1)
	assert.ErrorIs(t, err, models.ErrEmptySlot)

	// deleting an already empty slot is a no-op
	assert.NoError(t, svc.Delete(ctx, "u1", 1))
}

func TestSavesAreScopedPerUser(t *testing.T) {
	svc := service.NewSaveService(repository.NewMemoryKVStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Save(ctx, "u1", 0, service.SaveSnapshot{ChapterID: 4})
	require.NoError(t, err)

	_, err = svc.Load(ctx, "u2", 0)
	assert.ErrorIs(t, err, models.ErrEmptySlot)
}
