package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-engine/internal/content"
	"story-engine/internal/models"
	"story-engine/internal/repository"
	"story-engine/internal/repository/mocks"
	"story-engine/internal/service"
)

func newProgressFixture(t *testing.T) (service.ProgressService, repository.KVStore, content.Repository) {
	t.Helper()
	repo, err := content.NewEmbeddedRepository(content.DefaultPackPath, zap.NewNop())
	require.NoError(t, err)
	store := repository.NewMemoryKVStore()
	return service.NewProgressService(store, repo, zap.NewNop()), store, repo
}

func completeChapter(t *testing.T, svc service.ProgressService, userID string, result service.ChapterResult) *service.ChapterCompletion {
	t.Helper()
	completion, err := svc.CompleteChapter(context.Background(), userID, result)
	require.NoError(t, err)
	return completion
}

func TestCompleteChapterUnlocksNext(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	unlocked, err := svc.IsChapterUnlocked(ctx, "u1", 2)
	require.NoError(t, err)
	assert.False(t, unlocked)

	completion := completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 70})
	assert.Equal(t, 2, completion.UnlockedChapterID)

	unlocked, err = svc.IsChapterUnlocked(ctx, "u1", 2)
	require.NoError(t, err)
	assert.True(t, unlocked)

	progress, err := svc.ChapterProgress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, progress[1].IsCompleted)
	assert.Equal(t, 70, progress[1].Score)
	assert.False(t, progress[2].IsCompleted)
	assert.True(t, progress[2].IsUnlocked)
}

func TestCompleteChapterMergesRecords(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 1, Score: 70,
		Choices: map[string]string{"choice_attitude": "humble"},
	})
	completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 2, Score: 65})

	// replaying chapter 1 must not clobber what chapter 2's run wrote
	completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 90})

	progress, err := svc.ChapterProgress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, progress[2].IsCompleted)
	assert.True(t, progress[2].IsUnlocked)
	assert.Equal(t, 65, progress[2].Score)
	assert.Equal(t, 90, progress[1].Score)
	assert.Equal(t, map[string]string{"choice_attitude": "humble"}, progress[1].Choices)
	assert.True(t, progress[3].IsUnlocked)
}

func TestAchievementUnlocksAreIdempotent(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	first := completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 70})
	assert.Contains(t, first.NewlyUnlockedAchievements, "first_chapter")

	again := completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 70})
	assert.NotContains(t, again.NewlyUnlockedAchievements, "first_chapter")

	unlocked, err := svc.Achievements(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_chapter"}, unlocked)

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AchievementsUnlocked)
}

func TestPerfectQuizThreshold(t *testing.T) {
	svc, _, _ := newProgressFixture(t)

	below := completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 79})
	assert.NotContains(t, below.NewlyUnlockedAchievements, "perfect_quiz")

	at := completeChapter(t, svc, "u2", service.ChapterResult{ChapterID: 1, Score: 80})
	assert.Contains(t, at.NewlyUnlockedAchievements, "perfect_quiz")
}

func TestEndingAchievementAndStats(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	completion := completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 5, Score: 70, Ending: "romantic_ending",
	})
	assert.Contains(t, completion.NewlyUnlockedAchievements, "romantic_ending")
	// no further chapter to unlock after the final one
	assert.Zero(t, completion.UnlockedChapterID)

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"romantic_ending"}, stats.Endings)

	// reaching the same ending again records it once
	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 5, Score: 70, Ending: "romantic_ending",
	})
	stats, err = svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"romantic_ending"}, stats.Endings)
}

func TestStoryMasterRequiresAllChapters(t *testing.T) {
	svc, _, repo := newProgressFixture(t)

	var last *service.ChapterCompletion
	for id := 1; id <= repo.FinalChapterID(); id++ {
		last = completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: id, Score: 70})
		if id < repo.FinalChapterID() {
			assert.NotContains(t, last.NewlyUnlockedAchievements, "story_master")
		}
	}
	assert.Contains(t, last.NewlyUnlockedAchievements, "story_master")
}

func TestCompletionPercentageFormula(t *testing.T) {
	svc, store, _ := newProgressFixture(t)
	ctx := context.Background()

	// one of five chapters completed, nothing else: 1/5 of the 40% term
	err := store.Set(ctx, "user:u1:chapterProgress",
		`{"1":{"isCompleted":true,"score":70,"relationshipScore":50,"isUnlocked":true}}`)
	require.NoError(t, err)

	pct, err := svc.CompletionPercentage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 8, pct)
}

func TestCompletionPercentageZeroForFreshLedger(t *testing.T) {
	svc, _, _ := newProgressFixture(t)

	pct, err := svc.CompletionPercentage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, pct)
}

func TestStatsBestScoresAreMonotonic(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 1, Score: 90,
		GameScores: map[string]int{"dressup": 40},
	})
	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 1, Score: 60,
		GameScores: map[string]int{"dressup": 25},
	})

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 90, stats.BestScores["chapter_1"])
	assert.Equal(t, 40, stats.BestScores["dressup"])
	assert.Equal(t, 2, stats.MinigamesPlayed)
}

func TestFavoriteCharacterRosterTieBreak(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	// all characters seeded at 50: the first roster entry wins the tie
	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 1, Score: 70, RelationshipScore: 50,
	})
	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "roro_jonggrang", stats.FavoriteCharacter)

	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 1, Score: 70,
		RelationshipScores: map[string]int{"bandung_bondowoso": 90},
	})
	stats, err = svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "bandung_bondowoso", stats.FavoriteCharacter)

	// ids outside the roster rank after it, lexicographically among themselves
	completeChapter(t, svc, "u1", service.ChapterResult{
		ChapterID: 1, Score: 70,
		RelationshipScores: map[string]int{"zz_guest": 95, "aa_guest": 95},
	})
	stats, err = svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "aa_guest", stats.FavoriteCharacter)
}

func TestAddPlayTime(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddPlayTime(ctx, "u1", 0), models.ErrInvalidInput)

	require.NoError(t, svc.AddPlayTime(ctx, "u1", 12))
	require.NoError(t, svc.AddPlayTime(ctx, "u1", 5))

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 17, stats.TotalPlayTime)
}

func TestContinuePoint(t *testing.T) {
	svc, _, _ := newProgressFixture(t)
	ctx := context.Background()

	point, err := svc.ContinuePoint(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, point.ChapterID)
	assert.True(t, point.IsNewGame)

	completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 70})

	point, err = svc.ContinuePoint(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, point.ChapterID)
	assert.False(t, point.IsNewGame)
}

func TestStoreErrorsPropagate(t *testing.T) {
	repo, err := content.NewEmbeddedRepository(content.DefaultPackPath, zap.NewNop())
	require.NoError(t, err)

	store := new(mocks.KVStore)
	storeErr := errors.New("connection refused")
	store.On("Get", mock.Anything, "user:u1:chapterProgress").Return("", storeErr)

	svc := service.NewProgressService(store, repo, zap.NewNop())

	_, err = svc.ChapterProgress(context.Background(), "u1")
	assert.ErrorIs(t, err, storeErr)

	_, err = svc.CompleteChapter(context.Background(), "u1", service.ChapterResult{ChapterID: 1})
	assert.ErrorIs(t, err, storeErr)
	store.AssertExpectations(t)
}

func TestResetAllClearsLedgerOnly(t *testing.T) {
	svc, store, _ := newProgressFixture(t)
	ctx := context.Background()

	completeChapter(t, svc, "u1", service.ChapterResult{ChapterID: 1, Score: 85})
	require.NoError(t, store.Set(ctx, "user:u1:gameSettings", `{"soundEnabled":false}`))

	require.NoError(t, svc.ResetAll(ctx, "u1"))

	progress, err := svc.ChapterProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, progress)

	unlocked, err := svc.Achievements(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	pct, err := svc.CompletionPercentage(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, pct)

	// settings survive a progress reset
	_, err = store.Get(ctx, "user:u1:gameSettings")
	assert.NoError(t, err)
}
