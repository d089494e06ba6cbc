// Package prompt wraps interactive yes/no confirmation so destructive
// actions can be gated identically in interactive and non-interactive
// (pre-answered) runs.
package prompt

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// Confirmer asks a yes/no question. Every destructive action routes
// through exactly one Confirm call per decision point.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Interactive presents questions with a terminal form.
type Interactive struct{}

// Confirm shows a yes/no form and returns the user's answer.
func (Interactive) Confirm(question string) (bool, error) {
	var answer bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Value(&answer),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return answer, nil
}

// Answered answers every question with a fixed value, for --yes runs
// and tests.
type Answered struct {
	Answer bool
}

// Confirm returns the pre-set answer.
func (a Answered) Confirm(string) (bool, error) {
	return a.Answer, nil
}
