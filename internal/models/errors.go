package models

import "errors"

// Application-wide standard errors
var (
	// Content errors (malformed chapter graph, fatal to chapter load)
	ErrChapterNotFound   = errors.New("chapter not found")
	ErrInvalidContent    = errors.New("invalid chapter content")
	ErrEmptySceneList    = errors.New("chapter has no scenes")
	ErrDanglingReference = errors.New("choice references unknown scene")

	// Playback errors
	ErrChapterLocked     = errors.New("chapter is locked")
	ErrSessionNotFound   = errors.New("playback session not found")
	ErrInvalidChoice     = errors.New("choice not found in current scene")
	ErrNoChoicesHere     = errors.New("current scene has no choices")
	ErrNoMinigameHere    = errors.New("current scene has no mini-game")
	ErrChoiceRequired    = errors.New("current scene requires a choice")
	ErrChapterFinished   = errors.New("chapter already finished")
	ErrNotAtChapterEnd   = errors.New("quiz is only available at chapter end")
	ErrInvalidQuizAnswer = errors.New("quiz answer count does not match question count")

	// Save-slot errors
	ErrEmptySlot           = errors.New("save slot is empty")
	ErrSlotIndexOutOfRange = errors.New("save slot index out of range")

	// Storage errors
	ErrKeyNotFound      = errors.New("key not found in storage")
	ErrStoreUnavailable = errors.New("persistent store unavailable")

	// General request errors
	ErrInvalidInput = errors.New("invalid input data")
)
