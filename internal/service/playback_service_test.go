package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-engine/internal/content"
	"story-engine/internal/engine"
	"story-engine/internal/messaging"
	messagingmocks "story-engine/internal/messaging/mocks"
	"story-engine/internal/models"
	"story-engine/internal/repository"
	"story-engine/internal/service"
)

type playbackFixture struct {
	playback  service.PlaybackService
	progress  service.ProgressService
	settings  service.SettingsService
	publisher *messagingmocks.EventPublisher
	content   content.Repository
}

func newPlaybackFixture(t *testing.T) *playbackFixture {
	t.Helper()
	log := zap.NewNop()
	repo, err := content.NewEmbeddedRepository(content.DefaultPackPath, log)
	require.NoError(t, err)

	store := repository.NewMemoryKVStore()
	progress := service.NewProgressService(store, repo, log)
	settings := service.NewSettingsService(store, log)
	publisher := new(messagingmocks.EventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	playback := service.NewPlaybackService(
		engine.NewManager(log), repo, progress, settings, publisher, log)
	return &playbackFixture{
		playback:  playback,
		progress:  progress,
		settings:  settings,
		publisher: publisher,
		content:   repo,
	}
}

// playToEnd advances the session through the whole chapter, resolving choice
// scenes with the given picks and completing mini-games with score 0.
func playToEnd(t *testing.T, s *engine.Session, picks map[string]string) {
	t.Helper()
	for !s.Finished() {
		switch sc := s.Scene(); sc.Kind {
		case models.SceneChoice:
			pick, ok := picks[sc.ID]
			require.True(t, ok, "no pick for choice scene %s", sc.ID)
			require.NoError(t, s.ResolveChoice(pick))
		case models.SceneMinigame:
			_, err := s.CompleteMinigame(sc.GameType, 0)
			require.NoError(t, err)
		default:
			_, err := s.Advance()
			require.NoError(t, err)
		}
	}
}

func TestStartChapterRequiresUnlock(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	_, err := f.playback.StartChapter(ctx, "u1", 2)
	assert.ErrorIs(t, err, models.ErrChapterLocked)

	_, err = f.playback.StartChapter(ctx, "u1", 42)
	assert.ErrorIs(t, err, models.ErrChapterNotFound)

	session, err := f.playback.StartChapter(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, session.ChapterID())

	played, err := f.settings.HasPlayedBefore(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, played)
}

func TestSubmitQuizRequiresChapterEnd(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	session, err := f.playback.StartChapter(ctx, "u1", 1)
	require.NoError(t, err)

	_, err = f.playback.SubmitQuiz(ctx, "u1", session.ID(), []int{0, 1, 1})
	assert.ErrorIs(t, err, models.ErrNotAtChapterEnd)
}

func TestSubmitQuizGradesAndCommits(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	session, err := f.playback.StartChapter(ctx, "u1", 1)
	require.NoError(t, err)
	playToEnd(t, session, map[string]string{"choice_attitude": "humble"})

	_, err = f.playback.SubmitQuiz(ctx, "u1", session.ID(), []int{0})
	assert.ErrorIs(t, err, models.ErrInvalidQuizAnswer)

	// chapter 1 answers: q1=0, q2=1, q3=1; two of three correct
	result, err := f.playback.SubmitQuiz(ctx, "u1", session.ID(), []int{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 67, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, []bool{true, true, false}, result.Correct)
	assert.Contains(t, result.NewlyUnlocked, "first_chapter")

	// the committed ledger unlocked chapter 2
	unlocked, err := f.progress.IsChapterUnlocked(ctx, "u1", 2)
	require.NoError(t, err)
	assert.True(t, unlocked)

	// the session is gone once committed
	_, err = f.playback.Session("u1", session.ID())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev messaging.GameEvent) bool {
		return ev.Type == messaging.EventChapterCompleted && ev.ChapterID == 1
	}))
	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev messaging.GameEvent) bool {
		return ev.Type == messaging.EventAchievementUnlocked && ev.Detail == "first_chapter"
	}))
}

func TestPerfectScoreUnlocksPerfectQuiz(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	session, err := f.playback.StartChapter(ctx, "u1", 1)
	require.NoError(t, err)
	playToEnd(t, session, map[string]string{"choice_attitude": "humble"})

	result, err := f.playback.SubmitQuiz(ctx, "u1", session.ID(), []int{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Contains(t, result.NewlyUnlocked, "perfect_quiz")
}

func TestFailedQuizStillCompletesChapter(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	session, err := f.playback.StartChapter(ctx, "u1", 1)
	require.NoError(t, err)
	playToEnd(t, session, map[string]string{"choice_attitude": "humble"})

	result, err := f.playback.SubmitQuiz(ctx, "u1", session.ID(), []int{3, 3, 3})
	require.NoError(t, err)
	assert.Zero(t, result.Score)
	assert.False(t, result.Passed)

	progress, err := f.progress.ChapterProgress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, progress[1].IsCompleted)
}

func TestSessionScopedToUser(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	session, err := f.playback.StartChapter(ctx, "u1", 1)
	require.NoError(t, err)

	_, err = f.playback.Session("intruder", session.ID())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	assert.ErrorIs(t, f.playback.EndSession("intruder", session.ID()), models.ErrSessionNotFound)
	require.NoError(t, f.playback.EndSession("u1", session.ID()))
}

func TestUnknownSession(t *testing.T) {
	f := newPlaybackFixture(t)

	_, err := f.playback.Session("u1", uuid.New())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestResumeFromSave(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	rec := &models.SaveRecord{
		ChapterID:         1,
		SceneIndex:        5,
		RelationshipScore: 70,
		Choices:           map[string]string{"choice_attitude": "humble"},
	}
	session, err := f.playback.ResumeFromSave(ctx, "u1", rec)
	require.NoError(t, err)

	assert.Equal(t, 5, session.SceneIndex())
	assert.Equal(t, 70, session.RelationshipScore())
	assert.Equal(t, rec.Choices, session.Choices())
}
