// Package project inspects and prepares the Node.js project devark writes into.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

const PackageJSON = "package.json"

var ErrNotNodeProject = errors.New("the folder does not contain a valid Node.js project (missing or invalid package.json)")

// Language of the generated code.
type Language string

const (
	JavaScript Language = "JavaScript"
	TypeScript Language = "TypeScript"
)

func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "js", "javascript":
		return JavaScript, nil
	case "ts", "typescript":
		return TypeScript, nil
	}
	return "", fmt.Errorf("unknown language %q (want JavaScript or TypeScript)", s)
}

// Ext is the source file extension without the dot.
func (l Language) Ext() string {
	if l == TypeScript {
		return "ts"
	}
	return "js"
}

// SourceDir is where generated sources go, relative to the project root.
func (l Language) SourceDir() string {
	if l == TypeScript {
		return "src"
	}
	return "."
}

// DefaultEntry is the entry file offered in prompts.
func (l Language) DefaultEntry() string {
	if l == TypeScript {
		return "src/app.ts"
	}
	return "app.js"
}

// Context is everything an installer knows about the target project. It
// replaces implicit reads of the working directory and process environment.
type Context struct {
	Dir      string
	Env      map[string]string
	Manager  Manager
	Language Language
	Entry    string // relative to Dir
}

// EntryPath is the absolute entry-file path.
func (c Context) EntryPath() string {
	return filepath.Join(c.Dir, c.Entry)
}

// SourceRoot is the absolute directory generated sources are written to.
func (c Context) SourceRoot() string {
	return filepath.Join(c.Dir, c.Language.SourceDir())
}

// Info is what Validate learned from package.json.
type Info struct {
	Name    string
	Version string
	Type    string
	Manager Manager
}

type packageHeader struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"`
}

// Validate checks that dir holds a package.json that parses as a JSON object.
// Comments and trailing commas are tolerated.
func Validate(dir string, order []Manager) (Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, PackageJSON))
	if err != nil {
		return Info{}, ErrNotNodeProject
	}
	clean := jsonc.ToJSON(data)

	var raw any
	if err := json.Unmarshal(clean, &raw); err != nil {
		return Info{}, ErrNotNodeProject
	}
	if _, ok := raw.(map[string]any); !ok {
		return Info{}, ErrNotNodeProject
	}

	var h packageHeader
	_ = json.Unmarshal(clean, &h)

	return Info{
		Name:    h.Name,
		Version: h.Version,
		Type:    h.Type,
		Manager: DetectManager(dir, order),
	}, nil
}

// IsValid reports whether dir is a valid Node project.
func IsValid(dir string) bool {
	_, err := Validate(dir, nil)
	return err == nil
}

// DetectLanguage guesses the project language from tsconfig.json.
func DetectLanguage(dir string) Language {
	if _, err := os.Stat(filepath.Join(dir, "tsconfig.json")); err == nil {
		return TypeScript
	}
	return JavaScript
}

// ResolveEntry returns entry when it exists. For TypeScript projects a
// missing entry falls back to the first .ts file in src/.
func ResolveEntry(dir, entry string, lang Language) (string, bool) {
	if info, err := os.Stat(filepath.Join(dir, entry)); err == nil && info.Mode().IsRegular() {
		return entry, true
	}
	if lang != TypeScript {
		return entry, false
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "src", "*.ts"))
	for _, m := range matches {
		if strings.HasSuffix(m, ".d.ts") {
			continue
		}
		rel, err := filepath.Rel(dir, m)
		if err == nil {
			return filepath.ToSlash(rel), true
		}
	}
	return entry, false
}
