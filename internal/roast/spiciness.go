package roast

import (
	_ "embed"
	"fmt"
	"strings"
)

// Spiciness is the harshness tier of a roast.
type Spiciness string

const (
	Mild       Spiciness = "mild"
	Spicy      Spiciness = "spicy"
	ExtraSpicy Spiciness = "extra_spicy"
)

// DefaultSpiciness is the level a new session starts with.
const DefaultSpiciness = Mild

var (
	//go:embed prompts/mild.txt
	promptMild string
	//go:embed prompts/spicy.txt
	promptSpicy string
	//go:embed prompts/extra_spicy.txt
	promptExtraSpicy string
)

// Levels lists every spiciness from gentlest to harshest.
func Levels() []Spiciness {
	return []Spiciness{Mild, Spicy, ExtraSpicy}
}

// ParseSpiciness accepts the wire values plus a few human spellings
// ("extra spicy", "Extra-Spicy").
func ParseSpiciness(raw string) (Spiciness, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	level := Spiciness(normalized)
	if !level.Valid() {
		return "", fmt.Errorf("unknown spiciness %q (want mild, spicy or extra_spicy)", raw)
	}
	return level, nil
}

// Valid reports whether s is one of the three known levels.
func (s Spiciness) Valid() bool {
	switch s {
	case Mild, Spicy, ExtraSpicy:
		return true
	default:
		return false
	}
}

// Temperature grows with harshness: 0.7, 0.8, 0.9.
func (s Spiciness) Temperature() float64 {
	switch s {
	case Mild:
		return 0.7
	case Spicy:
		return 0.8
	default:
		return 0.9
	}
}

// Prompt returns the persona template for s.
func (s Spiciness) Prompt() string {
	switch s {
	case Mild:
		return strings.TrimSpace(promptMild)
	case Spicy:
		return strings.TrimSpace(promptSpicy)
	default:
		return strings.TrimSpace(promptExtraSpicy)
	}
}

// Label is a display name for menus.
func (s Spiciness) Label() string {
	switch s {
	case Mild:
		return "Mild - gentle ribbing"
	case Spicy:
		return "Spicy - sarcastic roast"
	case ExtraSpicy:
		return "Extra Spicy - no mercy"
	default:
		return string(s)
	}
}

func (s Spiciness) String() string {
	return string(s)
}
