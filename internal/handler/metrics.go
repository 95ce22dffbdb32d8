package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_engine_sessions_started_total",
		Help: "Playback sessions opened, by chapter.",
	}, []string{"chapter"})

	chaptersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_engine_chapters_completed_total",
		Help: "Chapters committed to the progress ledger, by chapter.",
	}, []string{"chapter"})

	achievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_engine_achievements_unlocked_total",
		Help: "Achievement unlocks, by achievement id.",
	}, []string{"achievement"})

	quizSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_engine_quiz_submissions_total",
		Help: "Quiz submissions, by pass/fail outcome.",
	}, []string{"outcome"})
)
