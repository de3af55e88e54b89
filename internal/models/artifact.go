package models

import (
	"encoding/json"
	"fmt"
)

// QuizSubtype values the generator may choose from
const (
	QuizSubtypeMCQ            = "MCQ"
	QuizSubtypeTrueFalse      = "TrueFalse"
	QuizSubtypeFillBlanks     = "FillBlanks"
	QuizSubtypeMatchFollowing = "MatchFollowing"
)

// ArtifactTheme is the color scheme every artifact kind carries.
type ArtifactTheme struct {
	PrimaryColor    string `json:"primaryColor"`
	SecondaryColor  string `json:"secondaryColor,omitempty"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	FontFamily      string `json:"fontFamily,omitempty"`
}

// Quiz is the validated shape of a generated quiz payload.
type Quiz struct {
	Subtype     string            `json:"subtype"`
	Theme       ArtifactTheme     `json:"theme"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Questions   []json.RawMessage `json:"questions"`
}

// Timeline is the validated shape of a generated timeline payload.
type Timeline struct {
	ID          string        `json:"id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Theme       ArtifactTheme `json:"theme"`
	Events      []struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"events"`
}

// Mindmap is the validated shape of a generated mindmap payload.
type Mindmap struct {
	Title string        `json:"title"`
	Theme ArtifactTheme `json:"theme"`
	Nodes []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Level int    `json:"level"`
	} `json:"nodes"`
}

// Flashcards is the validated shape of a generated flashcard deck payload.
type Flashcards struct {
	Title string        `json:"title"`
	Theme ArtifactTheme `json:"theme"`
	Cards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	} `json:"cards"`
}

// ValidateArtifact checks that raw is a structurally valid payload for the
// given content type. The payload itself stays opaque JSON in storage; this
// is the one boundary where its shape is enforced.
func ValidateArtifact(ct ContentType, raw json.RawMessage) error {
	switch ct {
	case ContentTypeQuiz:
		return validateQuiz(raw)
	case ContentTypeTimeline:
		return validateTimeline(raw)
	case ContentTypeMindmap:
		return validateMindmap(raw)
	case ContentTypeFlashcard:
		return validateFlashcards(raw)
	default:
		return fmt.Errorf("unknown content type: %s", ct)
	}
}

func validateQuiz(raw json.RawMessage) error {
	var q Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return fmt.Errorf("quiz payload is not valid JSON: %w", err)
	}
	switch q.Subtype {
	case QuizSubtypeMCQ, QuizSubtypeTrueFalse, QuizSubtypeFillBlanks, QuizSubtypeMatchFollowing:
	default:
		return fmt.Errorf("invalid quiz subtype: %q", q.Subtype)
	}
	if q.Title == "" {
		return fmt.Errorf("quiz missing title")
	}
	if len(q.Questions) < 1 {
		return fmt.Errorf("quiz must contain at least 1 question")
	}
	return validateTheme(q.Theme, true)
}

func validateTimeline(raw json.RawMessage) error {
	var t Timeline
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("timeline payload is not valid JSON: %w", err)
	}
	if t.Title == "" {
		return fmt.Errorf("timeline missing title")
	}
	if len(t.Events) == 0 {
		return fmt.Errorf("timeline must contain at least 1 event")
	}
	for i, ev := range t.Events {
		if ev.Title == "" || ev.Date == "" {
			return fmt.Errorf("timeline event %d missing title or date", i)
		}
	}
	return nil
}

func validateMindmap(raw json.RawMessage) error {
	var m Mindmap
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("mindmap payload is not valid JSON: %w", err)
	}
	if m.Title == "" {
		return fmt.Errorf("mindmap missing title")
	}
	if len(m.Nodes) == 0 {
		return fmt.Errorf("mindmap must contain at least 1 node")
	}
	root := false
	for i, n := range m.Nodes {
		if n.Label == "" {
			return fmt.Errorf("mindmap node %d missing label", i)
		}
		if n.Level == 0 {
			root = true
		}
	}
	if !root {
		return fmt.Errorf("mindmap has no root node")
	}
	return nil
}

func validateFlashcards(raw json.RawMessage) error {
	var f Flashcards
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("flashcard payload is not valid JSON: %w", err)
	}
	if f.Title == "" {
		return fmt.Errorf("flashcard deck missing title")
	}
	if len(f.Cards) == 0 {
		return fmt.Errorf("flashcard deck must contain at least 1 card")
	}
	for i, c := range f.Cards {
		if c.Front == "" || c.Back == "" {
			return fmt.Errorf("flashcard %d missing front or back", i)
		}
	}
	return nil
}

func validateTheme(theme ArtifactTheme, requireSecondary bool) error {
	if theme.PrimaryColor == "" || theme.BackgroundColor == "" || theme.TextColor == "" {
		return fmt.Errorf("theme missing required colors")
	}
	if requireSecondary && theme.SecondaryColor == "" {
		return fmt.Errorf("theme missing secondaryColor")
	}
	return nil
}
