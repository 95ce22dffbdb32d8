package handler

import (
	"story-engine/internal/engine"
	"story-engine/internal/models"
	"story-engine/internal/service"
)

// StartSessionRequest opens a playback session for a chapter.
type StartSessionRequest struct {
	ChapterID int `json:"chapterId"`
}

// ChoiceRequest resolves a choice on the current scene.
type ChoiceRequest struct {
	ChoiceID string `json:"choiceId"`
}

// RevealTickRequest reveals more of the current scene's text.
type RevealTickRequest struct {
	Runes int `json:"runes"`
}

// MinigameRequest reports a finished mini-game.
type MinigameRequest struct {
	GameType string `json:"gameType"`
	Score    int    `json:"score"`
}

// QuizRequest carries the selected option index per question, in order.
type QuizRequest struct {
	Answers []int `json:"answers"`
}

// SaveRequest snapshots a live session into a slot.
type SaveRequest struct {
	SessionID string `json:"sessionId"`
}

// PlayTimeRequest folds played minutes into the stats ledger.
type PlayTimeRequest struct {
	Minutes int `json:"minutes"`
}

// SessionResponse is the full presenter-facing state of a session.
type SessionResponse struct {
	SessionID         string             `json:"sessionId"`
	ChapterID         int                `json:"chapterId"`
	ChapterTitle      string             `json:"chapterTitle"`
	SceneIndex        int                `json:"sceneIndex"`
	SceneCount        int                `json:"sceneCount"`
	Scene             *models.Scene      `json:"scene"`
	RelationshipScore int                `json:"relationshipScore"`
	Choices           map[string]string  `json:"choices"`
	Finished          bool               `json:"finished"`
	QuizAvailable     bool               `json:"quizAvailable"`
	Reveal            engine.RevealState `json:"reveal"`
}

// ChapterSummary is one entry of the chapter list, merged with the user's
// ledger state.
type ChapterSummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	SceneCount  int    `json:"sceneCount"`
	IsUnlocked  bool   `json:"isUnlocked"`
	IsCompleted bool   `json:"isCompleted"`
	Score       int    `json:"score"`
}

// ProgressResponse is the aggregate progress view.
type ProgressResponse struct {
	Completion      int                            `json:"completion"`
	ContinuePoint   *service.ContinuePoint         `json:"continuePoint"`
	ChapterProgress map[int]models.ChapterProgress `json:"chapterProgress"`
	HasPlayedBefore bool                           `json:"hasPlayedBefore"`
}

// AchievementView is a catalog entry merged with its unlock state.
type AchievementView struct {
	models.AchievementDef
	Unlocked bool `json:"unlocked"`
}

// AchievementsResponse lists the whole catalog plus the raw unlocked ids.
type AchievementsResponse struct {
	Achievements []AchievementView `json:"achievements"`
	Unlocked     []string          `json:"unlocked"`
}

// StatsResponse is the stats ledger plus presenter-ready derived fields.
type StatsResponse struct {
	models.GameStats
	PlayTimeFormatted string `json:"playTimeFormatted"`
}
