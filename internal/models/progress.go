package models

import "fmt"

// Keys of the persisted key-value schema. The shapes behind these keys are
// compatible with the pre-existing mobile client and must not change.
const (
	KeyGameProgress    = "gameProgress"    // integer percentage string
	KeyChapterProgress = "chapterProgress" // JSON: chapterId -> ChapterProgress
	KeyAchievements    = "achievements"    // JSON array of achievement ids
	KeyGameStats       = "gameStats"       // JSON GameStats
	KeyGameSaves       = "gameSaves"       // JSON array of SaveSlotCount elements
	KeyGameSettings    = "gameSettings"    // JSON GameSettings
	KeyHasPlayedBefore = "hasPlayedBefore" // literal "true" once set
)

// SaveSlotCount is the fixed number of save slots.
const SaveSlotCount = 6

// DefaultRelationshipScore is the starting relationship score per playthrough.
const DefaultRelationshipScore = 50

// ChapterProgress is the durable per-chapter completion record. Records are
// created lazily and merged field-wise, never replaced wholesale: unlocking
// chapter k+1 must not clobber fields already present on its record.
type ChapterProgress struct {
	IsCompleted       bool              `json:"isCompleted"`
	Score             int               `json:"score"`
	RelationshipScore int               `json:"relationshipScore"`
	Choices           map[string]string `json:"choices,omitempty"`
	IsUnlocked        bool              `json:"isUnlocked"`
}

// GameStats is the cross-chapter aggregate ledger.
type GameStats struct {
	TotalPlayTime        int            `json:"totalPlayTime"` // minutes, monotonic
	ChaptersCompleted    int            `json:"chaptersCompleted"`
	AchievementsUnlocked int            `json:"achievementsUnlocked"` // unique ids only
	ChoicesMade          int            `json:"choicesMade"`
	MinigamesPlayed      int            `json:"minigamesPlayed"`
	BestScores           map[string]int `json:"bestScores"`
	Endings              []string       `json:"endings"`
	FavoriteCharacter    string         `json:"favoriteCharacter"`
	RelationshipScores   map[string]int `json:"relationshipScores"`
}

// NewGameStats returns zeroed stats with the relationship map seeded from the
// character roster.
func NewGameStats(roster []Character) GameStats {
	scores := make(map[string]int, len(roster))
	for _, ch := range roster {
		scores[ch.ID] = ch.InitialRelationship
	}
	return GameStats{
		BestScores:         make(map[string]int),
		Endings:            []string{},
		RelationshipScores: scores,
	}
}

// FormatPlayTime renders accumulated minutes the way the client shows them,
// as "2h 15m" or "45m".
func FormatPlayTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// SaveRecord is one point-in-time snapshot held in a save slot. Choices and
// Achievements are copies taken at save time, never live references.
type SaveRecord struct {
	ID                string            `json:"id"`
	ChapterID         int               `json:"chapterId"`
	SceneIndex        int               `json:"sceneIndex"`
	Timestamp         int64             `json:"timestamp"` // unix milliseconds
	RelationshipScore int               `json:"relationshipScore"`
	Choices           map[string]string `json:"choices"`
	Achievements      []string          `json:"achievements"`
}

// GameSettings is the presenter-facing settings blob. The engine stores it
// verbatim; only autoAdvance and textSpeed influence playback pacing.
type GameSettings struct {
	SoundEnabled bool    `json:"soundEnabled"`
	MusicEnabled bool    `json:"musicEnabled"`
	AutoAdvance  bool    `json:"autoAdvance"`
	TextSpeed    float64 `json:"textSpeed"`
}

// DefaultGameSettings mirrors the defaults shipped with the client.
func DefaultGameSettings() GameSettings {
	return GameSettings{
		SoundEnabled: true,
		MusicEnabled: true,
		AutoAdvance:  false,
		TextSpeed:    1,
	}
}

// QuizResult is the outcome of an end-of-chapter quiz evaluation.
type QuizResult struct {
	Score         int      `json:"score"` // percentage, 0..100
	Passed        bool     `json:"passed"`
	Correct       []bool   `json:"correct"` // per-question correctness
	NewlyUnlocked []string `json:"newlyUnlocked,omitempty"`
}
