// Package content loads and validates the embedded story packs.
// A pack is parsed once at startup; chapters handed out afterwards are
// shared read-only data and must not be mutated by callers.
package content

import (
	"embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"story-engine/internal/models"
)

//go:embed packs/*.json
var packsFS embed.FS

// DefaultPackPath is the pack loaded when no override is configured.
const DefaultPackPath = "packs/roro_jonggrang.json"

// Repository provides validated chapter graphs and the achievement catalog.
type Repository interface {
	Pack() *models.ContentPack
	ChapterByID(id int) (*models.Chapter, error)
	ChapterCount() int
	FinalChapterID() int
	AchievementByID(id string) (*models.AchievementDef, bool)
	CharacterIDs() []string
}

type packRepository struct {
	pack         *models.ContentPack
	chapterIndex map[int]*models.Chapter
	achIndex     map[string]*models.AchievementDef
	characterIDs []string
	logger       *zap.Logger
}

// NewEmbeddedRepository parses the embedded pack at path and validates the
// whole scene graph eagerly, so playback never hits a malformed scene.
func NewEmbeddedRepository(path string, logger *zap.Logger) (Repository, error) {
	raw, err := packsFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content pack %q: %w", path, err)
	}
	return NewRepositoryFromJSON(raw, logger)
}

// NewRepositoryFromJSON builds a repository from raw pack JSON.
func NewRepositoryFromJSON(raw []byte, logger *zap.Logger) (Repository, error) {
	var pack models.ContentPack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return nil, fmt.Errorf("parse content pack: %w", err)
	}

	repo := &packRepository{
		pack:         &pack,
		chapterIndex: make(map[int]*models.Chapter, len(pack.Chapters)),
		achIndex:     make(map[string]*models.AchievementDef, len(pack.Achievements)),
		logger:       logger.Named("ContentRepository"),
	}
	for i := range pack.Characters {
		repo.characterIDs = append(repo.characterIDs, pack.Characters[i].ID)
	}
	for i := range pack.Achievements {
		def := &pack.Achievements[i]
		repo.achIndex[def.ID] = def
	}
	for i := range pack.Chapters {
		ch := &pack.Chapters[i]
		if err := validateChapter(ch); err != nil {
			return nil, fmt.Errorf("chapter %d: %w", ch.ID, err)
		}
		if _, dup := repo.chapterIndex[ch.ID]; dup {
			return nil, fmt.Errorf("chapter %d: duplicate chapter id: %w", ch.ID, models.ErrInvalidContent)
		}
		repo.chapterIndex[ch.ID] = ch
	}
	if len(pack.Chapters) == 0 {
		return nil, fmt.Errorf("content pack has no chapters: %w", models.ErrInvalidContent)
	}

	repo.logger.Info("Content pack loaded",
		zap.String("title", pack.Title),
		zap.Int("chapters", len(pack.Chapters)),
		zap.Int("achievements", len(pack.Achievements)))
	return repo, nil
}

func (r *packRepository) Pack() *models.ContentPack { return r.pack }

func (r *packRepository) ChapterByID(id int) (*models.Chapter, error) {
	ch, ok := r.chapterIndex[id]
	if !ok {
		return nil, models.ErrChapterNotFound
	}
	return ch, nil
}

func (r *packRepository) ChapterCount() int { return len(r.pack.Chapters) }

// FinalChapterID returns the highest chapter id in the pack.
func (r *packRepository) FinalChapterID() int {
	max := 0
	for id := range r.chapterIndex {
		if id > max {
			max = id
		}
	}
	return max
}

func (r *packRepository) AchievementByID(id string) (*models.AchievementDef, bool) {
	def, ok := r.achIndex[id]
	return def, ok
}

// CharacterIDs returns character ids in pack roster order. The order is
// stable and used to break ties when ranking relationship scores.
func (r *packRepository) CharacterIDs() []string {
	out := make([]string, len(r.characterIDs))
	copy(out, r.characterIDs)
	return out
}

func validateChapter(ch *models.Chapter) error {
	if len(ch.Scenes) == 0 {
		return models.ErrEmptySceneList
	}

	sceneIDs := make(map[string]struct{}, len(ch.Scenes))
	for i := range ch.Scenes {
		sc := &ch.Scenes[i]
		if sc.ID == "" {
			return fmt.Errorf("scene %d has empty id: %w", i, models.ErrInvalidContent)
		}
		if _, dup := sceneIDs[sc.ID]; dup {
			return fmt.Errorf("scene %q: duplicate scene id: %w", sc.ID, models.ErrInvalidContent)
		}
		sceneIDs[sc.ID] = struct{}{}
	}

	for i := range ch.Scenes {
		sc := &ch.Scenes[i]
		if err := validateScene(sc, sceneIDs); err != nil {
			return fmt.Errorf("scene %q: %w", sc.ID, err)
		}
	}

	for i := range ch.Quiz {
		q := &ch.Quiz[i]
		if len(q.Options) == 0 {
			return fmt.Errorf("quiz question %q has no options: %w", q.ID, models.ErrInvalidContent)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("quiz question %q: correct answer %d out of range: %w",
				q.ID, q.CorrectAnswer, models.ErrInvalidContent)
		}
	}
	return nil
}

func validateScene(sc *models.Scene, sceneIDs map[string]struct{}) error {
	switch sc.Kind {
	case models.SceneDialogue:
		if sc.Text == "" {
			return fmt.Errorf("dialogue scene has empty text: %w", models.ErrInvalidContent)
		}
	case models.SceneChoice:
		if len(sc.Choices) == 0 {
			return fmt.Errorf("choice scene has no choices: %w", models.ErrInvalidContent)
		}
		choiceIDs := make(map[string]struct{}, len(sc.Choices))
		for _, c := range sc.Choices {
			if c.ID == "" {
				return fmt.Errorf("choice with empty id: %w", models.ErrInvalidContent)
			}
			if _, dup := choiceIDs[c.ID]; dup {
				return fmt.Errorf("duplicate choice id %q: %w", c.ID, models.ErrInvalidContent)
			}
			choiceIDs[c.ID] = struct{}{}
			switch c.Effect {
			case models.EffectPositive, models.EffectNegative, models.EffectNeutral:
			default:
				return fmt.Errorf("choice %q has unknown effect %q: %w", c.ID, c.Effect, models.ErrInvalidContent)
			}
			if c.NextScene != "" {
				if _, ok := sceneIDs[c.NextScene]; !ok {
					return fmt.Errorf("choice %q points at missing scene %q: %w",
						c.ID, c.NextScene, models.ErrDanglingReference)
				}
			}
		}
	case models.SceneIllustration:
		if sc.ImageURL == "" {
			return fmt.Errorf("illustration scene has empty image url: %w", models.ErrInvalidContent)
		}
	case models.SceneMinigame:
		if sc.GameType == "" {
			return fmt.Errorf("minigame scene has empty game type: %w", models.ErrInvalidContent)
		}
	case models.SceneQuizTrigger:
	default:
		return fmt.Errorf("unknown scene type %q: %w", sc.Kind, models.ErrInvalidContent)
	}
	return nil
}
