package service

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-engine/internal/content"
	"story-engine/internal/engine"
	"story-engine/internal/messaging"
	"story-engine/internal/models"
)

// quizPassScore is the minimum percentage to pass an end-of-chapter quiz.
const quizPassScore = 60

// PlaybackService ties live sessions to the durable ledger: it gates chapter
// starts on unlock state, runs the end-of-chapter quiz and commits finished
// chapters through the progress service.
type PlaybackService interface {
	StartChapter(ctx context.Context, userID string, chapterID int) (*engine.Session, error)
	Session(userID string, sessionID uuid.UUID) (*engine.Session, error)
	EndSession(userID string, sessionID uuid.UUID) error
	SubmitQuiz(ctx context.Context, userID string, sessionID uuid.UUID, answers []int) (*models.QuizResult, error)
	ResumeFromSave(ctx context.Context, userID string, rec *models.SaveRecord) (*engine.Session, error)
}

type playbackService struct {
	sessions  *engine.Manager
	content   content.Repository
	progress  ProgressService
	settings  SettingsService
	publisher messaging.EventPublisher
	logger    *zap.Logger
}

func NewPlaybackService(
	sessions *engine.Manager,
	contentRepo content.Repository,
	progress ProgressService,
	settings SettingsService,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
) PlaybackService {
	return &playbackService{
		sessions:  sessions,
		content:   contentRepo,
		progress:  progress,
		settings:  settings,
		publisher: publisher,
		logger:    logger.Named("PlaybackService"),
	}
}

// StartChapter opens a session for an unlocked chapter and marks the user as
// having played.
func (s *playbackService) StartChapter(ctx context.Context, userID string, chapterID int) (*engine.Session, error) {
	unlocked, err := s.progress.IsChapterUnlocked(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, models.ErrChapterLocked
	}
	chapter, err := s.content.ChapterByID(chapterID)
	if err != nil {
		return nil, err
	}

	if err := s.settings.MarkPlayed(ctx, userID); err != nil {
		// the marker is cosmetic, playback proceeds without it
		s.logger.Warn("Failed to set first-launch marker",
			zap.String("userId", userID), zap.Error(err))
	}
	return s.sessions.Create(userID, chapter), nil
}

func (s *playbackService) Session(userID string, sessionID uuid.UUID) (*engine.Session, error) {
	return s.sessions.Get(sessionID, userID)
}

func (s *playbackService) EndSession(userID string, sessionID uuid.UUID) error {
	if _, err := s.sessions.Get(sessionID, userID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

// SubmitQuiz grades the answers against the chapter quiz, commits the
// completed chapter to the ledger and emits gameplay events. The session
// must have reached the end of its scene list. Chapters without a quiz
// complete with a full score.
func (s *playbackService) SubmitQuiz(ctx context.Context, userID string, sessionID uuid.UUID, answers []int) (*models.QuizResult, error) {
	session, err := s.sessions.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !session.Finished() {
		return nil, models.ErrNotAtChapterEnd
	}
	chapter, err := s.content.ChapterByID(session.ChapterID())
	if err != nil {
		return nil, err
	}
	if len(answers) != len(chapter.Quiz) {
		return nil, models.ErrInvalidQuizAnswer
	}

	result := &models.QuizResult{Score: 100, Correct: []bool{}}
	if len(chapter.Quiz) > 0 {
		correct := 0
		result.Correct = make([]bool, len(chapter.Quiz))
		for i, q := range chapter.Quiz {
			if answers[i] == q.CorrectAnswer {
				result.Correct[i] = true
				correct++
			}
		}
		result.Score = int(math.Round(float64(correct) / float64(len(chapter.Quiz)) * 100))
	}
	result.Passed = result.Score >= quizPassScore

	completion, err := s.progress.CompleteChapter(ctx, userID, ChapterResult{
		ChapterID:         session.ChapterID(),
		Score:             result.Score,
		RelationshipScore: session.RelationshipScore(),
		Choices:           session.Choices(),
		GameScores:        session.GameScores(),
		Ending:            session.Ending(),
	})
	if err != nil {
		return nil, err
	}
	result.NewlyUnlocked = completion.NewlyUnlockedAchievements

	s.publishCompletionEvents(ctx, userID, session, completion)
	s.sessions.Delete(sessionID)
	return result, nil
}

// ResumeFromSave opens a session positioned at a saved snapshot.
func (s *playbackService) ResumeFromSave(ctx context.Context, userID string, rec *models.SaveRecord) (*engine.Session, error) {
	chapter, err := s.content.ChapterByID(rec.ChapterID)
	if err != nil {
		return nil, err
	}
	session := s.sessions.Create(userID, chapter)
	session.Restore(rec.SceneIndex, rec.RelationshipScore, rec.Choices)
	return session, nil
}

func (s *playbackService) publishCompletionEvents(ctx context.Context, userID string, session *engine.Session, completion *ChapterCompletion) {
	events := []messaging.GameEvent{{
		Type:      messaging.EventChapterCompleted,
		UserID:    userID,
		ChapterID: session.ChapterID(),
	}}
	for _, id := range completion.NewlyUnlockedAchievements {
		events = append(events, messaging.GameEvent{
			Type:   messaging.EventAchievementUnlocked,
			UserID: userID,
			Detail: id,
		})
	}
	if ending := session.Ending(); ending != "" {
		events = append(events, messaging.GameEvent{
			Type:      messaging.EventEndingReached,
			UserID:    userID,
			ChapterID: session.ChapterID(),
			Detail:    ending,
		})
	}
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish gameplay event",
				zap.String("type", ev.Type), zap.Error(err))
		}
	}
}
