package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-engine/internal/content"
	"story-engine/internal/models"
)

func TestEmbeddedPackLoads(t *testing.T) {
	repo, err := content.NewEmbeddedRepository(content.DefaultPackPath, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 5, repo.ChapterCount())
	assert.Equal(t, 5, repo.FinalChapterID())
	assert.Equal(t, []string{"roro_jonggrang", "bandung_bondowoso", "raja_baka"}, repo.CharacterIDs())

	ch, err := repo.ChapterByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Kerajaan Prambanan", ch.Title)
	require.NotEmpty(t, ch.Scenes)
	assert.Len(t, ch.Quiz, 3)

	_, err = repo.ChapterByID(99)
	assert.ErrorIs(t, err, models.ErrChapterNotFound)
}

func TestEmbeddedPackEndingsTagged(t *testing.T) {
	repo, err := content.NewEmbeddedRepository(content.DefaultPackPath, zap.NewNop())
	require.NoError(t, err)

	ch, err := repo.ChapterByID(5)
	require.NoError(t, err)

	idx := ch.SceneIndexByID("choice_ending")
	require.NotEqual(t, -1, idx)

	endings := make(map[string]string)
	for _, c := range ch.Scenes[idx].Choices {
		endings[c.ID] = c.Ending
	}
	assert.Equal(t, "classic_ending", endings["classic_ending"])
	assert.Equal(t, "romantic_ending", endings["romantic_ending"])
	assert.Equal(t, "peaceful_ending", endings["peaceful_ending"])
}

func TestEmbeddedPackAchievementCatalog(t *testing.T) {
	repo, err := content.NewEmbeddedRepository(content.DefaultPackPath, zap.NewNop())
	require.NoError(t, err)

	def, ok := repo.AchievementByID("perfect_quiz")
	require.True(t, ok)
	assert.Equal(t, "quiz", def.Category)

	_, ok = repo.AchievementByID("nonexistent")
	assert.False(t, ok)
}

func TestValidationRejectsEmptySceneList(t *testing.T) {
	raw := []byte(`{"title":"t","chapters":[{"id":1,"title":"c1","scenes":[]}]}`)
	_, err := content.NewRepositoryFromJSON(raw, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrEmptySceneList)
}

func TestValidationRejectsDanglingReference(t *testing.T) {
	raw := []byte(`{"title":"t","chapters":[{"id":1,"title":"c1","scenes":[
		{"id":"s1","type":"choice","choices":[
			{"id":"a","text":"go","effect":"neutral","nextScene":"missing"}
		]}
	]}]}`)
	_, err := content.NewRepositoryFromJSON(raw, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrDanglingReference)
}

func TestValidationRejectsBadQuizAnswerIndex(t *testing.T) {
	raw := []byte(`{"title":"t","chapters":[{"id":1,"title":"c1",
		"scenes":[{"id":"s1","type":"dialogue","text":"hi"}],
		"quiz":[{"id":"q1","question":"?","options":["a","b"],"correctAnswer":2}]}]}`)
	_, err := content.NewRepositoryFromJSON(raw, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrInvalidContent)
}

func TestValidationRejectsUnknownEffect(t *testing.T) {
	raw := []byte(`{"title":"t","chapters":[{"id":1,"title":"c1","scenes":[
		{"id":"s1","type":"choice","choices":[{"id":"a","text":"go","effect":"huge"}]},
		{"id":"s2","type":"dialogue","text":"hi"}
	]}]}`)
	_, err := content.NewRepositoryFromJSON(raw, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrInvalidContent)
}
