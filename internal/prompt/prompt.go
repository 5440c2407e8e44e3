// Package prompt asks the user for module settings. HuhPrompter drives a
// terminal form; Scripted answers from a table and backs --yes and tests.
package prompt

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

var (
	ErrCancelled      = errors.New("installation aborted")
	ErrNotInteractive = errors.New("prompts require an interactive terminal (use --yes to accept defaults)")
)

// Prompter defines the interaction methods. Each method pre-fills the
// prompt with the current value and overwrites it with the answer.
type Prompter interface {
	Select(title string, options []string, value *string) error
	Input(title string, value *string) error
	SecretInput(title string, value *string) error
	Confirm(title string, value *bool) error
}

// HuhPrompter implements Prompter using charmbracelet/huh.
type HuhPrompter struct {
	isTerminal func() bool
}

var runFormFunc = func(form *huh.Form) error { return form.Run() }

func NewHuhPrompter() *HuhPrompter {
	return &HuhPrompter{isTerminal: IsInteractive}
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (p *HuhPrompter) run(field huh.Field) error {
	check := p.isTerminal
	if check == nil {
		check = IsInteractive
	}
	if !check() {
		return ErrNotInteractive
	}

	form := huh.NewForm(huh.NewGroup(field)).WithOutput(os.Stderr)
	err := runFormFunc(form)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return err
}

func (p *HuhPrompter) Select(title string, options []string, value *string) error {
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}
	return p.run(huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(value))
}

func (p *HuhPrompter) Input(title string, value *string) error {
	return p.run(huh.NewInput().
		Title(title).
		Placeholder(*value).
		Value(value))
}

func (p *HuhPrompter) SecretInput(title string, value *string) error {
	return p.run(huh.NewInput().
		Title(title).
		Value(value).
		EchoMode(huh.EchoModePassword))
}

func (p *HuhPrompter) Confirm(title string, value *bool) error {
	return p.run(huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(value))
}
