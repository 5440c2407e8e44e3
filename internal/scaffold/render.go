package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/devark-dev/devark/internal/templates"
)

// TemplateData is the context every module template is rendered with.
type TemplateData struct {
	ProjectName string
	TypeScript  bool
	Ext         string
	Module      string
	InstallCmd  string
	DevCmd      string

	// CommonJS renders require/module.exports for JavaScript entry files
	// that use require.
	CommonJS bool
}

// Renderer renders embedded templates.
type Renderer struct {
	FS fs.FS
	// Force overwrites existing destination files.
	Force bool
	// DryRun renders without writing.
	DryRun bool
}

func NewRenderer() *Renderer {
	return &Renderer{FS: templates.FS}
}

// Render executes the named template. Unknown fields fail instead of
// rendering as "<no value>".
func (r *Renderer) Render(name string, data any) (string, error) {
	content, err := fs.ReadFile(r.fsys(), name)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}

	tmpl, err := template.New(filepath.Base(name)).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderFile renders name into dest, creating parent directories. An existing
// dest is left alone unless Force is set; written reports which happened.
func (r *Renderer) RenderFile(name, dest string, data any) (written bool, err error) {
	if _, err := os.Stat(dest); err == nil && !r.Force {
		return false, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	out, err := r.Render(name, data)
	if err != nil {
		return false, err
	}
	if r.DryRun {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(dest, []byte(out), 0644); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Renderer) fsys() fs.FS {
	if r.FS == nil {
		return templates.FS
	}
	return r.FS
}

// --- String helpers ---

// packageName turns a directory name into a valid npm package name.
func packageName(dir string) string {
	name := strings.Join(splitWords(filepath.Base(dir)), "-")
	if name == "" || name == "." {
		return "app"
	}
	return name
}

func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(unicode.ToLower(r))
		case r == '.' && cur.Len() > 0:
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}
