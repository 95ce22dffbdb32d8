package models

// SceneKind tags the variant of a Scene. Each kind carries its own subset of
// fields; the content loader enforces the pairing at load time so traversal
// never meets an undefined field.
type SceneKind string

const (
	SceneDialogue     SceneKind = "dialogue"
	SceneChoice       SceneKind = "choice"
	SceneIllustration SceneKind = "illustration"
	SceneMinigame     SceneKind = "minigame"
	SceneQuizTrigger  SceneKind = "quiz"
)

// ChoiceEffect is the signed influence of a choice on the relationship score.
type ChoiceEffect string

const (
	EffectPositive ChoiceEffect = "positive"
	EffectNegative ChoiceEffect = "negative"
	EffectNeutral  ChoiceEffect = "neutral"
)

// Choice is a player-selectable branch option attached to a choice scene.
// NextScene, when set, must resolve to a scene id within the same chapter;
// when empty, traversal falls through to the next sequential scene.
// Ending marks the choice as reaching a story ending (final chapters only).
type Choice struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Effect    ChoiceEffect `json:"effect,omitempty"`
	NextScene string       `json:"nextScene,omitempty"`
	Ending    string       `json:"ending,omitempty"`
}

// Scene is one atomic unit of presented story content. Immutable once loaded.
type Scene struct {
	ID          string    `json:"id"`
	Kind        SceneKind `json:"type"`
	Speaker     string    `json:"speaker,omitempty"`
	Text        string    `json:"text,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Choices     []Choice  `json:"choices,omitempty"`
	GameType    string    `json:"gameType,omitempty"`
	AutoAdvance bool      `json:"autoAdvance,omitempty"`
}

// FindChoice returns the choice with the given id, or nil.
func (s *Scene) FindChoice(choiceID string) *Choice {
	for i := range s.Choices {
		if s.Choices[i].ID == choiceID {
			return &s.Choices[i]
		}
	}
	return nil
}

// QuizQuestion is a single question of a chapter's end-of-chapter quiz.
// CorrectAnswer is a zero-based index into Options.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Chapter is an ordered, non-empty sequence of scenes plus a quiz.
// Chapters form a strictly ordered sequence 1..N.
type Chapter struct {
	ID     int            `json:"id"`
	Title  string         `json:"title"`
	Scenes []Scene        `json:"scenes"`
	Quiz   []QuizQuestion `json:"quiz"`
}

// SceneIndexByID returns the index of the scene with the given id, or -1.
func (c *Chapter) SceneIndexByID(sceneID string) int {
	for i := range c.Scenes {
		if c.Scenes[i].ID == sceneID {
			return i
		}
	}
	return -1
}

// Character is one relationship-tracked story character. Roster order is the
// tie-break order for the favorite-character derivation.
type Character struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	InitialRelationship int    `json:"initialRelationship"`
}

// AchievementDef is one catalog entry of the achievements gallery.
type AchievementDef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	MaxProgress int    `json:"maxProgress,omitempty"`
}

// ContentPack is a full authored story: chapter graph, character roster,
// achievement catalog and the completion-percentage totals.
type ContentPack struct {
	Title             string           `json:"title"`
	Characters        []Character      `json:"characters"`
	Achievements      []AchievementDef `json:"achievements"`
	TotalAchievements int              `json:"totalAchievements"`
	TotalEndings      int              `json:"totalEndings"`
	Chapters          []Chapter        `json:"chapters"`
}
