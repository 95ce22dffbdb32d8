package service

import (
	"context"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"story-engine/internal/content"
	"story-engine/internal/models"
	"story-engine/internal/repository"
)

// Achievement rule thresholds.
const (
	perfectQuizScore   = 80
	wiseChoicesScore   = 80
	battleMasterScore  = 80
	chapterCountWeight = 40.0
	achievementWeight  = 40.0
	endingWeight       = 20.0
)

// ChapterResult is the outcome of one finished chapter playthrough, fed into
// the durable ledger.
type ChapterResult struct {
	ChapterID          int
	Score              int // quiz percentage
	RelationshipScore  int
	RelationshipScores map[string]int // per character, overrides the single score
	Choices            map[string]string
	GameScores         map[string]int
	Ending             string
}

// ChapterCompletion reports what a chapter completion changed.
type ChapterCompletion struct {
	NewlyUnlockedAchievements []string
	UnlockedChapterID         int // 0 when no further chapter exists
	CompletionPercentage      int
}

// ContinuePoint is the chapter the player should resume at.
type ContinuePoint struct {
	ChapterID  int  `json:"chapterId"`
	IsNewGame  bool `json:"isNewGame"`
	Completion int  `json:"completion"`
}

// ProgressService owns the durable per-user ledger: chapter records,
// achievements, aggregate stats and the overall completion percentage.
type ProgressService interface {
	ChapterProgress(ctx context.Context, userID string) (map[int]models.ChapterProgress, error)
	IsChapterUnlocked(ctx context.Context, userID string, chapterID int) (bool, error)
	CompleteChapter(ctx context.Context, userID string, result ChapterResult) (*ChapterCompletion, error)
	Achievements(ctx context.Context, userID string) ([]string, error)
	Stats(ctx context.Context, userID string) (models.GameStats, error)
	AddPlayTime(ctx context.Context, userID string, minutes int) error
	CompletionPercentage(ctx context.Context, userID string) (int, error)
	ContinuePoint(ctx context.Context, userID string) (*ContinuePoint, error)
	ResetAll(ctx context.Context, userID string) error
}

type progressService struct {
	store   repository.KVStore
	content content.Repository
	logger  *zap.Logger
}

func NewProgressService(store repository.KVStore, contentRepo content.Repository, logger *zap.Logger) ProgressService {
	return &progressService{
		store:   store,
		content: contentRepo,
		logger:  logger.Named("ProgressService"),
	}
}

func (s *progressService) ChapterProgress(ctx context.Context, userID string) (map[int]models.ChapterProgress, error) {
	progress := make(map[int]models.ChapterProgress)
	if _, err := loadJSON(ctx, s.store, userID, models.KeyChapterProgress, &progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// IsChapterUnlocked reports whether the user may start the chapter. The first
// chapter is always playable.
func (s *progressService) IsChapterUnlocked(ctx context.Context, userID string, chapterID int) (bool, error) {
	if _, err := s.content.ChapterByID(chapterID); err != nil {
		return false, err
	}
	if chapterID == 1 {
		return true, nil
	}
	progress, err := s.ChapterProgress(ctx, userID)
	if err != nil {
		return false, err
	}
	rec, ok := progress[chapterID]
	return ok && rec.IsUnlocked, nil
}

// CompleteChapter merges the playthrough outcome into the chapter record,
// unlocks the next chapter, updates the aggregate stats, evaluates the
// achievement rules and refreshes the stored completion percentage.
//
// Records are merged field-wise: unlocking the next chapter never clobbers
// fields an earlier run already wrote there.
func (s *progressService) CompleteChapter(ctx context.Context, userID string, result ChapterResult) (*ChapterCompletion, error) {
	log := s.logger.With(zap.String("userId", userID), zap.Int("chapterId", result.ChapterID))

	if _, err := s.content.ChapterByID(result.ChapterID); err != nil {
		return nil, err
	}

	progress, err := s.ChapterProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := progress[result.ChapterID]
	rec.IsCompleted = true
	rec.IsUnlocked = true
	rec.Score = result.Score
	rec.RelationshipScore = result.RelationshipScore
	if len(result.Choices) > 0 {
		rec.Choices = result.Choices
	}
	progress[result.ChapterID] = rec

	unlockedChapter := 0
	nextID := result.ChapterID + 1
	if _, err := s.content.ChapterByID(nextID); err == nil {
		next := progress[nextID]
		next.IsUnlocked = true
		progress[nextID] = next
		unlockedChapter = nextID
	}

	if err := storeJSON(ctx, s.store, userID, models.KeyChapterProgress, progress); err != nil {
		return nil, err
	}

	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.foldResultIntoStats(&stats, progress, result)

	unlocked, err := s.Achievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	newly := s.evaluateAchievements(unlocked, progress, result)
	if len(newly) > 0 {
		unlocked = append(unlocked, newly...)
		if err := storeJSON(ctx, s.store, userID, models.KeyAchievements, unlocked); err != nil {
			return nil, err
		}
	}
	stats.AchievementsUnlocked = len(unlocked)

	if err := storeJSON(ctx, s.store, userID, models.KeyGameStats, stats); err != nil {
		return nil, err
	}

	completion := s.completionOf(progress, len(unlocked), len(stats.Endings))
	if err := s.store.Set(ctx, userKey(userID, models.KeyGameProgress), strconv.Itoa(completion)); err != nil {
		return nil, err
	}

	log.Info("Chapter completed",
		zap.Int("score", result.Score),
		zap.Int("completion", completion),
		zap.Strings("newAchievements", newly))

	return &ChapterCompletion{
		NewlyUnlockedAchievements: newly,
		UnlockedChapterID:         unlockedChapter,
		CompletionPercentage:      completion,
	}, nil
}

func (s *progressService) Achievements(ctx context.Context, userID string) ([]string, error) {
	unlocked := []string{}
	if _, err := loadJSON(ctx, s.store, userID, models.KeyAchievements, &unlocked); err != nil {
		return nil, err
	}
	return unlocked, nil
}

func (s *progressService) Stats(ctx context.Context, userID string) (models.GameStats, error) {
	stats := models.NewGameStats(s.content.Pack().Characters)
	if _, err := loadJSON(ctx, s.store, userID, models.KeyGameStats, &stats); err != nil {
		return models.GameStats{}, err
	}
	if stats.BestScores == nil {
		stats.BestScores = make(map[string]int)
	}
	if stats.RelationshipScores == nil {
		stats.RelationshipScores = make(map[string]int)
	}
	if stats.Endings == nil {
		stats.Endings = []string{}
	}
	return stats, nil
}

// AddPlayTime folds played minutes into the stats ledger. Best effort, the
// counter only grows.
func (s *progressService) AddPlayTime(ctx context.Context, userID string, minutes int) error {
	if minutes <= 0 {
		return models.ErrInvalidInput
	}
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return err
	}
	stats.TotalPlayTime += minutes
	return storeJSON(ctx, s.store, userID, models.KeyGameStats, stats)
}

func (s *progressService) CompletionPercentage(ctx context.Context, userID string) (int, error) {
	raw, err := s.store.Get(ctx, userKey(userID, models.KeyGameProgress))
	if err == nil {
		if pct, convErr := strconv.Atoi(raw); convErr == nil {
			return pct, nil
		}
	}

	// derive from the ledger when the cached value is absent or garbled
	progress, err := s.ChapterProgress(ctx, userID)
	if err != nil {
		return 0, err
	}
	unlocked, err := s.Achievements(ctx, userID)
	if err != nil {
		return 0, err
	}
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.completionOf(progress, len(unlocked), len(stats.Endings)), nil
}

// ContinuePoint picks the chapter to resume: the lowest unlocked chapter not
// yet completed, or the first chapter for a fresh ledger.
func (s *progressService) ContinuePoint(ctx context.Context, userID string) (*ContinuePoint, error) {
	progress, err := s.ChapterProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	completion, err := s.CompletionPercentage(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(progress) == 0 {
		return &ContinuePoint{ChapterID: 1, IsNewGame: true, Completion: completion}, nil
	}
	for id := 1; id <= s.content.FinalChapterID(); id++ {
		rec, ok := progress[id]
		if id == 1 && !rec.IsCompleted {
			return &ContinuePoint{ChapterID: 1, Completion: completion}, nil
		}
		if ok && rec.IsUnlocked && !rec.IsCompleted {
			return &ContinuePoint{ChapterID: id, Completion: completion}, nil
		}
	}
	// everything completed, point at the final chapter for replay
	return &ContinuePoint{ChapterID: s.content.FinalChapterID(), Completion: completion}, nil
}

// ResetAll wipes the progress ledger. Save slots and settings survive.
func (s *progressService) ResetAll(ctx context.Context, userID string) error {
	keys := []string{
		userKey(userID, models.KeyGameProgress),
		userKey(userID, models.KeyChapterProgress),
		userKey(userID, models.KeyAchievements),
		userKey(userID, models.KeyGameStats),
	}
	if err := s.store.MultiRemove(ctx, keys); err != nil {
		return err
	}
	s.logger.Info("Progress reset", zap.String("userId", userID))
	return nil
}

// foldResultIntoStats applies one chapter completion to the aggregate ledger.
// Best scores are monotonic, endings are recorded once.
func (s *progressService) foldResultIntoStats(stats *models.GameStats, progress map[int]models.ChapterProgress, result ChapterResult) {
	completed := 0
	for _, rec := range progress {
		if rec.IsCompleted {
			completed++
		}
	}
	stats.ChaptersCompleted = completed
	stats.ChoicesMade += len(result.Choices)
	stats.MinigamesPlayed += len(result.GameScores)

	chapterKey := "chapter_" + strconv.Itoa(result.ChapterID)
	if result.Score > stats.BestScores[chapterKey] {
		stats.BestScores[chapterKey] = result.Score
	}
	for gameType, score := range result.GameScores {
		if score > stats.BestScores[gameType] {
			stats.BestScores[gameType] = score
		}
	}

	if result.Ending != "" && !contains(stats.Endings, result.Ending) {
		stats.Endings = append(stats.Endings, result.Ending)
	}

	if len(result.RelationshipScores) > 0 {
		for id, score := range result.RelationshipScores {
			stats.RelationshipScores[id] = score
		}
	} else if roster := s.content.CharacterIDs(); len(roster) > 0 {
		stats.RelationshipScores[roster[0]] = result.RelationshipScore
	}
	stats.FavoriteCharacter = s.favoriteCharacter(stats.RelationshipScores)
}

// favoriteCharacter ranks by relationship score, breaking ties by pack
// roster order so the result is deterministic. Ids outside the roster rank
// after it, in lexicographic order.
func (s *progressService) favoriteCharacter(scores map[string]int) string {
	roster := s.content.CharacterIDs()
	inRoster := make(map[string]bool, len(roster))
	for _, id := range roster {
		inRoster[id] = true
	}

	var extras []string
	for id := range scores {
		if !inRoster[id] {
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)

	best, bestScore := "", -1
	for _, id := range append(append([]string{}, roster...), extras...) {
		if score, ok := scores[id]; ok && score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}

// evaluateAchievements runs the rule table against the fresh ledger state and
// returns ids not yet unlocked. Unlocks are idempotent.
func (s *progressService) evaluateAchievements(unlocked []string, progress map[int]models.ChapterProgress, result ChapterResult) []string {
	var newly []string
	award := func(id string) {
		if _, known := s.content.AchievementByID(id); !known {
			return
		}
		if !contains(unlocked, id) && !contains(newly, id) {
			newly = append(newly, id)
		}
	}

	if result.ChapterID == 1 {
		award("first_chapter")
	}
	if result.Score >= perfectQuizScore {
		award("perfect_quiz")
	}
	if result.RelationshipScore >= wiseChoicesScore {
		award("wise_choices")
	}
	if result.GameScores["battle"] >= battleMasterScore {
		award("battle_master")
	}
	if result.Ending != "" {
		award(result.Ending)
	}

	allCompleted := true
	for id := 1; id <= s.content.FinalChapterID(); id++ {
		if !progress[id].IsCompleted {
			allCompleted = false
			break
		}
	}
	if allCompleted {
		award("story_master")
	}
	return newly
}

// completionOf computes the overall percentage: chapters weigh 40%,
// achievements 40%, endings 20%. Each term caps at its weight.
func (s *progressService) completionOf(progress map[int]models.ChapterProgress, achievements, endings int) int {
	completed := 0
	for _, rec := range progress {
		if rec.IsCompleted {
			completed++
		}
	}

	pack := s.content.Pack()
	chapterTerm := cappedShare(completed, s.content.ChapterCount(), chapterCountWeight)
	achievementTerm := cappedShare(achievements, pack.TotalAchievements, achievementWeight)
	endingTerm := cappedShare(endings, pack.TotalEndings, endingWeight)

	return int(math.Round(chapterTerm + achievementTerm + endingTerm))
}

func cappedShare(have, total int, weight float64) float64 {
	if total <= 0 {
		return 0
	}
	share := float64(have) / float64(total) * weight
	return math.Min(share, weight)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
