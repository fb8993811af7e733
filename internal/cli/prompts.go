package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/manifoldco/promptui"

	"resume-roaster/internal/roast"
)

const (
	PromptRegenerate      = "Regenerate"
	PromptChangeSpiciness = "Change spiciness"
	PromptUpdateKey       = "Update API key"
	PromptExit            = "Exit"
)

// UI is the interactive surface of the roast command.
type UI interface {
	SelectSpiciness(current roast.Spiciness) (roast.Spiciness, error)
	NextAction(items []string) (string, error)
	PromptAPIKey(ctx context.Context) (string, error)
}

type terminalUI struct{}

func (terminalUI) SelectSpiciness(current roast.Spiciness) (roast.Spiciness, error) {
	levels := roast.Levels()
	labels := make([]string, 0, len(levels))
	cursor := 0
	for i, level := range levels {
		labels = append(labels, level.Label())
		if level == current {
			cursor = i
		}
	}
	sel := promptui.Select{
		Label:     "Spiciness",
		Items:     labels,
		CursorPos: cursor,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return "", err
	}
	return levels[idx], nil
}

func (terminalUI) NextAction(items []string) (string, error) {
	sel := promptui.Select{
		Label: "Next?",
		Items: items,
	}
	_, choice, err := sel.Run()
	return choice, err
}

func (terminalUI) PromptAPIKey(_ context.Context) (string, error) {
	p := promptui.Prompt{
		Label: "OpenRouter API key",
		Mask:  '*',
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("key must not be empty")
			}
			return nil
		},
	}
	return p.Run()
}

// interrupted reports a Ctrl-C or Ctrl-D at a prompt.
func interrupted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort)
}
