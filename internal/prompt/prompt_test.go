package prompt

import (
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuhPrompter_RequiresTerminal(t *testing.T) {
	p := &HuhPrompter{isTerminal: func() bool { return false }}
	v := "x"
	err := p.Input("Name", &v)
	assert.True(t, errors.Is(err, ErrNotInteractive))
	assert.Equal(t, "x", v)
}

func TestHuhPrompter_AbortMapsToCancelled(t *testing.T) {
	orig := runFormFunc
	runFormFunc = func(*huh.Form) error { return huh.ErrUserAborted }
	t.Cleanup(func() { runFormFunc = orig })

	p := &HuhPrompter{isTerminal: func() bool { return true }}
	var ok bool
	err := p.Confirm("Continue?", &ok)
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestHuhPrompter_PassesThroughErrors(t *testing.T) {
	orig := runFormFunc
	boom := errors.New("boom")
	runFormFunc = func(*huh.Form) error { return boom }
	t.Cleanup(func() { runFormFunc = orig })

	p := &HuhPrompter{isTerminal: func() bool { return true }}
	v := "JavaScript"
	err := p.Select("Language", []string{"JavaScript", "TypeScript"}, &v)
	assert.True(t, errors.Is(err, boom))
}

func TestScripted_Answers(t *testing.T) {
	s := &Scripted{
		Answers:  map[string]string{"Language": "TypeScript", "Key": "secret"},
		Confirms: map[string]bool{"Create?": true},
	}

	lang := "JavaScript"
	require.NoError(t, s.Select("Language", []string{"JavaScript", "TypeScript"}, &lang))
	assert.Equal(t, "TypeScript", lang)

	key := ""
	require.NoError(t, s.SecretInput("Key", &key))
	assert.Equal(t, "secret", key)

	entry := "app.js"
	require.NoError(t, s.Input("Entry", &entry))
	assert.Equal(t, "app.js", entry)

	var create bool
	require.NoError(t, s.Confirm("Create?", &create))
	assert.True(t, create)

	assert.Equal(t, []string{"Language", "Key", "Entry", "Create?"}, s.Asked)
}

func TestScripted_SelectDefaultsToFirstOption(t *testing.T) {
	var v string
	require.NoError(t, Defaults().Select("Provider", []string{"google-oauth", "github-oauth"}, &v))
	assert.Equal(t, "google-oauth", v)
}

func TestScripted_SelectRejectsUnknownOption(t *testing.T) {
	s := &Scripted{Answers: map[string]string{"Language": "Rust"}}
	v := "JavaScript"
	assert.Error(t, s.Select("Language", []string{"JavaScript", "TypeScript"}, &v))
}

func TestScripted_Cancel(t *testing.T) {
	s := &Scripted{CancelOn: "Entry"}
	v := "app.js"
	assert.True(t, errors.Is(s.Input("Entry", &v), ErrCancelled))

	var b bool
	s.CancelOn = "Create?"
	assert.True(t, errors.Is(s.Confirm("Create?", &b), ErrCancelled))
}
