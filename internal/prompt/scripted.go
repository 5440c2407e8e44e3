package prompt

import "fmt"

// Scripted answers prompts from fixed tables keyed by prompt title. A title
// without an answer keeps the pre-filled value, so an empty Scripted accepts
// every default.
type Scripted struct {
	Answers  map[string]string
	Confirms map[string]bool
	// CancelOn makes the prompt with this title return ErrCancelled.
	CancelOn string

	// Asked records every title in order.
	Asked []string
}

// Defaults returns a non-interactive prompter that accepts every default.
func Defaults() *Scripted {
	return &Scripted{}
}

func (s *Scripted) answer(title string, value *string) error {
	s.Asked = append(s.Asked, title)
	if s.CancelOn != "" && s.CancelOn == title {
		return ErrCancelled
	}
	if a, ok := s.Answers[title]; ok {
		*value = a
	}
	return nil
}

func (s *Scripted) Select(title string, options []string, value *string) error {
	if err := s.answer(title, value); err != nil {
		return err
	}
	for _, o := range options {
		if o == *value {
			return nil
		}
	}
	if *value == "" && len(options) > 0 {
		*value = options[0]
		return nil
	}
	return fmt.Errorf("%s: %q is not one of %v", title, *value, options)
}

func (s *Scripted) Input(title string, value *string) error {
	return s.answer(title, value)
}

func (s *Scripted) SecretInput(title string, value *string) error {
	return s.answer(title, value)
}

func (s *Scripted) Confirm(title string, value *bool) error {
	s.Asked = append(s.Asked, title)
	if s.CancelOn != "" && s.CancelOn == title {
		return ErrCancelled
	}
	if a, ok := s.Confirms[title]; ok {
		*value = a
	}
	return nil
}
