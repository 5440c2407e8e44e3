package scaffold

import (
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/devark-dev/devark/internal/project"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelSuccess
)

type Message struct {
	Level Level
	Text  string
}

// FileDiff is a unified diff of a file the run would change.
type FileDiff struct {
	Path string
	Diff string
}

// Result describes what an install did, or would do in a dry run. Paths are
// relative to Result.Dir.
type Result struct {
	Module   string
	Dir      string
	Language project.Language
	Entry    string
	Manager  project.Manager
	DryRun   bool

	Created  []string
	Modified []string
	Skipped  []string

	// Installed is true once the package manager finished successfully.
	Installed bool
	// ManualInstall lists commands the user must run themselves.
	ManualInstall []string

	Messages  []Message
	NextSteps []string
	Diffs     []FileDiff
}

func (r *Result) rel(path string) string {
	if rel, err := filepath.Rel(r.Dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (r *Result) created(path string)  { r.Created = append(r.Created, r.rel(path)) }
func (r *Result) modified(path string) { r.Modified = append(r.Modified, r.rel(path)) }
func (r *Result) skipped(path string)  { r.Skipped = append(r.Skipped, r.rel(path)) }

func (r *Result) info(text string) { r.Messages = append(r.Messages, Message{LevelInfo, text}) }
func (r *Result) warn(text string) { r.Messages = append(r.Messages, Message{LevelWarn, text}) }
func (r *Result) done(text string) { r.Messages = append(r.Messages, Message{LevelSuccess, text}) }

// change records a file write. A new file counts as created, a changed one as
// modified; in a dry run the diff is kept as well.
func (r *Result) change(path, before, after string, existed bool) {
	if before == after {
		return
	}
	if existed {
		r.modified(path)
	} else {
		r.created(path)
	}
	if r.DryRun {
		name := r.rel(path)
		diff := strings.TrimSpace(udiff.Unified(name+" (current)", name+" (proposed)", before, after))
		if diff != "" {
			r.Diffs = append(r.Diffs, FileDiff{Path: name, Diff: diff})
		}
	}
}
