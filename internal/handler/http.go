// Package handler exposes the playback engine and the progress ledger over
// HTTP. All gameplay routes require a bearer access token; the user id from
// the token scopes every read and write.
package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"story-engine/internal/content"
	"story-engine/internal/engine"
	"story-engine/internal/middleware"
	"story-engine/internal/models"
	"story-engine/internal/service"
)

// StoryHandler handles HTTP requests of the story engine.
type StoryHandler struct {
	playback  service.PlaybackService
	progress  service.ProgressService
	saves     service.SaveService
	settings  service.SettingsService
	content   content.Repository
	logger    *zap.Logger
	jwtSecret string
}

func NewStoryHandler(
	playback service.PlaybackService,
	progress service.ProgressService,
	saves service.SaveService,
	settings service.SettingsService,
	contentRepo content.Repository,
	logger *zap.Logger,
	jwtSecret string,
) *StoryHandler {
	return &StoryHandler{
		playback:  playback,
		progress:  progress,
		saves:     saves,
		settings:  settings,
		content:   contentRepo,
		logger:    logger.Named("StoryHandler"),
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes wires all routes onto the echo instance.
func (h *StoryHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := middleware.JWTAuth(h.jwtSecret)

	sessions := e.Group("/sessions", auth)
	{
		sessions.POST("", h.startSession)
		sessions.GET("/:id", h.getSession)
		sessions.DELETE("/:id", h.endSession)
		sessions.POST("/:id/advance", h.advance)
		sessions.POST("/:id/retreat", h.retreat)
		sessions.POST("/:id/choice", h.resolveChoice)
		sessions.POST("/:id/reveal/tick", h.revealTick)
		sessions.POST("/:id/reveal/skip", h.revealSkip)
		sessions.POST("/:id/minigame", h.completeMinigame)
		sessions.POST("/:id/quiz", h.submitQuiz)
	}

	chapters := e.Group("/chapters", auth)
	{
		chapters.GET("", h.listChapters)
		chapters.GET("/:id", h.getChapter)
	}

	progress := e.Group("/progress", auth)
	{
		progress.GET("", h.getProgress)
		progress.POST("/reset", h.resetProgress)
	}

	e.GET("/achievements", h.listAchievements, auth)
	e.GET("/stats", h.getStats, auth)
	e.POST("/stats/playtime", h.addPlayTime, auth)

	saves := e.Group("/saves", auth)
	{
		saves.GET("", h.listSaves)
		saves.GET("/:slot", h.getSave)
		saves.POST("/:slot", h.save)
		saves.DELETE("/:slot", h.deleteSave)
		saves.POST("/:slot/load", h.loadSave)
	}

	settings := e.Group("/settings", auth)
	{
		settings.GET("", h.getSettings)
		settings.PUT("", h.updateSettings)
	}
}

func (h *StoryHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// --- sessions ---

func (h *StoryHandler) startSession(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)

	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}

	session, err := h.playback.StartChapter(c.Request().Context(), userID, req.ChapterID)
	if err != nil {
		h.logger.Warn("Failed to start session",
			zap.String("userId", userID), zap.Int("chapterId", req.ChapterID), zap.Error(err))
		return handleServiceError(c, err, h.logger)
	}
	sessionsStarted.WithLabelValues(strconv.Itoa(req.ChapterID)).Inc()
	return c.JSON(http.StatusCreated, h.sessionResponse(session))
}

func (h *StoryHandler) getSession(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *StoryHandler) endSession(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleServiceError(c, models.ErrSessionNotFound, h.logger)
	}
	if err := h.playback.EndSession(userID, sessionID); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) advance(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	if _, err := session.Advance(); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *StoryHandler) retreat(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	session.Retreat()
	return c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *StoryHandler) resolveChoice(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	var req ChoiceRequest
	if err := c.Bind(&req); err != nil || req.ChoiceID == "" {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}
	if err := session.ResolveChoice(req.ChoiceID); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *StoryHandler) revealTick(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	var req RevealTickRequest
	if err := c.Bind(&req); err != nil || req.Runes <= 0 {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}
	return c.JSON(http.StatusOK, session.TickReveal(req.Runes))
}

func (h *StoryHandler) revealSkip(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, session.SkipReveal())
}

func (h *StoryHandler) completeMinigame(c echo.Context) error {
	session, err := h.sessionFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	var req MinigameRequest
	if err := c.Bind(&req); err != nil || req.GameType == "" || req.Score < 0 {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}
	if _, err := session.CompleteMinigame(req.GameType, req.Score); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *StoryHandler) submitQuiz(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleServiceError(c, models.ErrSessionNotFound, h.logger)
	}
	var req QuizRequest
	if err := c.Bind(&req); err != nil {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}

	result, err := h.playback.SubmitQuiz(c.Request().Context(), userID, sessionID, req.Answers)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}

	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	quizSubmissions.WithLabelValues(outcome).Inc()
	chaptersCompleted.WithLabelValues(c.Param("id")).Inc()
	for _, id := range result.NewlyUnlocked {
		achievementsUnlocked.WithLabelValues(id).Inc()
	}
	return c.JSON(http.StatusOK, result)
}

// --- chapters ---

func (h *StoryHandler) listChapters(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)

	progress, err := h.progress.ChapterProgress(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}

	pack := h.content.Pack()
	summaries := make([]ChapterSummary, 0, len(pack.Chapters))
	for i := range pack.Chapters {
		ch := &pack.Chapters[i]
		rec := progress[ch.ID]
		summaries = append(summaries, ChapterSummary{
			ID:          ch.ID,
			Title:       ch.Title,
			SceneCount:  len(ch.Scenes),
			IsUnlocked:  ch.ID == 1 || rec.IsUnlocked,
			IsCompleted: rec.IsCompleted,
			Score:       rec.Score,
		})
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *StoryHandler) getChapter(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)

	chapterID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return handleServiceError(c, models.ErrChapterNotFound, h.logger)
	}
	unlocked, err := h.progress.IsChapterUnlocked(c.Request().Context(), userID, chapterID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	if !unlocked {
		return handleServiceError(c, models.ErrChapterLocked, h.logger)
	}
	chapter, err := h.content.ChapterByID(chapterID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, chapter)
}

// --- progress ---

func (h *StoryHandler) getProgress(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	ctx := c.Request().Context()

	completion, err := h.progress.CompletionPercentage(ctx, userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	point, err := h.progress.ContinuePoint(ctx, userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	progress, err := h.progress.ChapterProgress(ctx, userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	played, err := h.settings.HasPlayedBefore(ctx, userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}

	return c.JSON(http.StatusOK, ProgressResponse{
		Completion:      completion,
		ContinuePoint:   point,
		ChapterProgress: progress,
		HasPlayedBefore: played,
	})
}

func (h *StoryHandler) resetProgress(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if err := h.progress.ResetAll(c.Request().Context(), userID); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- achievements & stats ---

func (h *StoryHandler) listAchievements(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)

	unlocked, err := h.progress.Achievements(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	unlockedSet := make(map[string]struct{}, len(unlocked))
	for _, id := range unlocked {
		unlockedSet[id] = struct{}{}
	}

	pack := h.content.Pack()
	views := make([]AchievementView, 0, len(pack.Achievements))
	for _, def := range pack.Achievements {
		_, ok := unlockedSet[def.ID]
		views = append(views, AchievementView{AchievementDef: def, Unlocked: ok})
	}
	return c.JSON(http.StatusOK, AchievementsResponse{Achievements: views, Unlocked: unlocked})
}

func (h *StoryHandler) getStats(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	stats, err := h.progress.Stats(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, StatsResponse{
		GameStats:         stats,
		PlayTimeFormatted: models.FormatPlayTime(stats.TotalPlayTime),
	})
}

func (h *StoryHandler) addPlayTime(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	var req PlayTimeRequest
	if err := c.Bind(&req); err != nil {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}
	if err := h.progress.AddPlayTime(c.Request().Context(), userID, req.Minutes); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- saves ---

func (h *StoryHandler) listSaves(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	slots, err := h.saves.List(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *StoryHandler) getSave(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	slot, err := slotFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	rec, err := h.saves.Load(c.Request().Context(), userID, slot)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *StoryHandler) save(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	ctx := c.Request().Context()

	slot, err := slotFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return handleServiceError(c, models.ErrSessionNotFound, h.logger)
	}
	session, err := h.playback.Session(userID, sessionID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	unlocked, err := h.progress.Achievements(ctx, userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}

	rec, err := h.saves.Save(ctx, userID, slot, service.SaveSnapshot{
		ChapterID:         session.ChapterID(),
		SceneIndex:        session.SceneIndex(),
		RelationshipScore: session.RelationshipScore(),
		Choices:           session.Choices(),
		Achievements:      unlocked,
	})
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *StoryHandler) deleteSave(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	slot, err := slotFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	if err := h.saves.Delete(c.Request().Context(), userID, slot); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) loadSave(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	ctx := c.Request().Context()

	slot, err := slotFromPath(c)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	rec, err := h.saves.Load(ctx, userID, slot)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	session, err := h.playback.ResumeFromSave(ctx, userID, rec)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusCreated, h.sessionResponse(session))
}

// --- settings ---

func (h *StoryHandler) getSettings(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	settings, err := h.settings.Settings(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *StoryHandler) updateSettings(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	var settings models.GameSettings
	if err := c.Bind(&settings); err != nil {
		return handleServiceError(c, models.ErrInvalidInput, h.logger)
	}
	if err := h.settings.UpdateSettings(c.Request().Context(), userID, settings); err != nil {
		return handleServiceError(c, err, h.logger)
	}
	return c.JSON(http.StatusOK, settings)
}

// --- helpers ---

func (h *StoryHandler) sessionFromPath(c echo.Context) (*engine.Session, error) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, models.ErrSessionNotFound
	}
	return h.playback.Session(middleware.UserIDFromContext(c), sessionID)
}

func (h *StoryHandler) sessionResponse(s *engine.Session) SessionResponse {
	chapter, err := h.content.ChapterByID(s.ChapterID())
	if err != nil {
		// sessions are only created from loaded chapters
		h.logger.Error("Session references unknown chapter", zap.Int("chapterId", s.ChapterID()))
		return SessionResponse{SessionID: s.ID().String()}
	}
	return SessionResponse{
		SessionID:         s.ID().String(),
		ChapterID:         chapter.ID,
		ChapterTitle:      chapter.Title,
		SceneIndex:        s.SceneIndex(),
		SceneCount:        len(chapter.Scenes),
		Scene:             s.Scene(),
		RelationshipScore: s.RelationshipScore(),
		Choices:           s.Choices(),
		Finished:          s.Finished(),
		QuizAvailable:     s.Finished() && len(chapter.Quiz) > 0,
		Reveal:            s.Reveal(),
	}
}

func slotFromPath(c echo.Context) (int, error) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		return 0, models.ErrSlotIndexOutOfRange
	}
	return slot, nil
}
