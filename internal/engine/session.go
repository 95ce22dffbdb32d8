// Package engine drives scene-by-scene playback of a single chapter.
// A Session owns the transient per-playthrough state: the scene cursor,
// the relationship accumulator and the choice map. Durable progress is
// written elsewhere, only when the chapter completes.
package engine

import (
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"story-engine/internal/models"
)

// Relationship score bounds and the per-choice step.
const (
	relationshipMin  = 0
	relationshipMax  = 100
	relationshipStep = 10
)

// RevealState tracks progressive disclosure of the current scene's text.
// Total and Revealed are rune counts.
type RevealState struct {
	Total    int  `json:"total"`
	Revealed int  `json:"revealed"`
	Done     bool `json:"done"`
}

// Session is an in-memory playthrough of one chapter. All methods are safe
// for concurrent use.
type Session struct {
	mu sync.Mutex

	id      uuid.UUID
	userID  string
	chapter *models.Chapter

	sceneIndex   int
	relationship int
	choices      map[string]string // scene id -> choice id, last write wins
	gameScores   map[string]int    // game type -> best score this session
	ending       string
	finished     bool

	reveal RevealState
}

// NewSession starts a playthrough of chapter at its first scene with the
// default relationship score.
func NewSession(userID string, chapter *models.Chapter) *Session {
	s := &Session{
		id:           uuid.New(),
		userID:       userID,
		chapter:      chapter,
		relationship: models.DefaultRelationshipScore,
		choices:      make(map[string]string),
		gameScores:   make(map[string]int),
	}
	s.resetReveal()
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) UserID() string { return s.userID }

func (s *Session) ChapterID() int { return s.chapter.ID }

// Scene returns the scene under the cursor.
func (s *Session) Scene() *models.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &s.chapter.Scenes[s.sceneIndex]
}

func (s *Session) SceneIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneIndex
}

func (s *Session) RelationshipScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationship
}

// Choices returns a copy of the scene id -> choice id map.
func (s *Session) Choices() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.choices))
	for k, v := range s.choices {
		out[k] = v
	}
	return out
}

// GameScores returns a copy of the per-game-type score map.
func (s *Session) GameScores() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.gameScores))
	for k, v := range s.gameScores {
		out[k] = v
	}
	return out
}

// Ending returns the ending id chosen this playthrough, or empty.
func (s *Session) Ending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ending
}

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Session) Reveal() RevealState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal
}

// Advance moves the cursor to the next sequential scene. Advancing off the
// final scene marks the chapter finished and reports it; further calls fail
// with ErrChapterFinished. A pending choice scene cannot be skipped.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return true, models.ErrChapterFinished
	}
	cur := &s.chapter.Scenes[s.sceneIndex]
	if cur.Kind == models.SceneChoice {
		if _, chosen := s.choices[cur.ID]; !chosen {
			return false, models.ErrChoiceRequired
		}
	}
	if s.sceneIndex == len(s.chapter.Scenes)-1 {
		s.finished = true
		return true, nil
	}
	s.sceneIndex++
	s.resetReveal()
	return false, nil
}

// Retreat moves the cursor one scene back, clamped at the first scene.
// Retreating from the finished state resumes the final scene.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		s.finished = false
		s.resetReveal()
		return
	}
	if s.sceneIndex > 0 {
		s.sceneIndex--
		s.resetReveal()
	}
}

// ResolveChoice records choiceID against the current choice scene, applies
// its relationship effect and moves the cursor to the choice's target scene,
// or to the next sequential scene when no target is set. Re-resolving the
// same scene overwrites the earlier pick; the effect applies each time.
func (s *Session) ResolveChoice(choiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return models.ErrChapterFinished
	}
	cur := &s.chapter.Scenes[s.sceneIndex]
	if cur.Kind != models.SceneChoice {
		return models.ErrNoChoicesHere
	}
	choice := cur.FindChoice(choiceID)
	if choice == nil {
		return models.ErrInvalidChoice
	}

	s.choices[cur.ID] = choice.ID
	switch choice.Effect {
	case models.EffectPositive:
		s.relationship = clamp(s.relationship+relationshipStep, relationshipMin, relationshipMax)
	case models.EffectNegative:
		s.relationship = clamp(s.relationship-relationshipStep, relationshipMin, relationshipMax)
	}
	if choice.Ending != "" {
		s.ending = choice.Ending
	}

	if choice.NextScene != "" {
		idx := s.chapter.SceneIndexByID(choice.NextScene)
		if idx == -1 {
			// the loader validates targets, so this is unreachable for
			// embedded packs
			return models.ErrDanglingReference
		}
		s.sceneIndex = idx
	} else if s.sceneIndex < len(s.chapter.Scenes)-1 {
		s.sceneIndex++
	} else {
		s.finished = true
		return nil
	}
	s.resetReveal()
	return nil
}

// CompleteMinigame records a finished mini-game, keeps the best score per
// game type and folds the score into the relationship accumulator,
// saturating at the upper bound. The cursor moves past the mini-game scene.
func (s *Session) CompleteMinigame(gameType string, score int) (bool, error) {
	s.mu.Lock()

	if s.finished {
		s.mu.Unlock()
		return true, models.ErrChapterFinished
	}
	if s.chapter.Scenes[s.sceneIndex].Kind != models.SceneMinigame {
		s.mu.Unlock()
		return false, models.ErrNoMinigameHere
	}
	if score > s.gameScores[gameType] {
		s.gameScores[gameType] = score
	}
	if score > 0 {
		s.relationship = clamp(s.relationship+score, relationshipMin, relationshipMax)
	}
	s.mu.Unlock()

	return s.Advance()
}

// TickReveal reveals up to n more runes of the current scene's text.
func (s *Session) TickReveal(n int) RevealState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > 0 && !s.reveal.Done {
		s.reveal.Revealed += n
		if s.reveal.Revealed >= s.reveal.Total {
			s.reveal.Revealed = s.reveal.Total
			s.reveal.Done = true
		}
	}
	return s.reveal
}

// SkipReveal discloses the full scene text at once.
func (s *Session) SkipReveal() RevealState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reveal.Revealed = s.reveal.Total
	s.reveal.Done = true
	return s.reveal
}

// Restore positions the session at a saved cursor with a saved relationship
// score and choice map. Out-of-range indexes clamp to the valid scene range.
func (s *Session) Restore(sceneIndex, relationship int, choices map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sceneIndex = clamp(sceneIndex, 0, len(s.chapter.Scenes)-1)
	s.relationship = clamp(relationship, relationshipMin, relationshipMax)
	s.choices = make(map[string]string, len(choices))
	for k, v := range choices {
		s.choices[k] = v
	}
	s.finished = false
	s.ending = ""
	s.resetReveal()
}

// resetReveal re-arms text disclosure for the scene under the cursor.
// Scenes without text count as fully revealed. Callers hold s.mu.
func (s *Session) resetReveal() {
	text := s.chapter.Scenes[s.sceneIndex].Text
	total := utf8.RuneCountInString(text)
	s.reveal = RevealState{Total: total, Revealed: 0, Done: total == 0}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
