package tutor

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var levelsYAML []byte

// Level is one tier of the CSR pyramid the tutor can focus on.
type Level struct {
	ID                 string   `yaml:"id" json:"id"`
	Title              string   `yaml:"title" json:"title"`
	Subtitle           string   `yaml:"subtitle" json:"subtitle"`
	Description        string   `yaml:"description" json:"description"`
	SuggestedQuestions []string `yaml:"suggested_questions" json:"suggested_questions"`
}

var (
	levelsOnce sync.Once
	levels     []Level
	levelsErr  error
)

// Levels returns the pyramid levels, top first.
func Levels() ([]Level, error) {
	levelsOnce.Do(func() {
		var doc struct {
			Levels []Level `yaml:"levels"`
		}
		if err := yaml.Unmarshal(levelsYAML, &doc); err != nil {
			levelsErr = fmt.Errorf("parsing pyramid levels: %w", err)
			return
		}
		levels = doc.Levels
	})
	return levels, levelsErr
}

// LevelByID looks up a level.
func LevelByID(id string) (Level, bool) {
	all, err := Levels()
	if err != nil {
		return Level{}, false
	}
	for _, l := range all {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}
