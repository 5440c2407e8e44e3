package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var ErrUnknownModule = errors.New("unknown module")

// Kind separates modules patched into an existing project from modules that
// generate a whole project.
type Kind string

const (
	KindFeature Kind = "feature"
	KindStarter Kind = "starter"
)

// ExtPlaceholder in a File destination is replaced by "js" or "ts".
const ExtPlaceholder = "<ext>"

// Module describes one scaffoldable feature: what it installs, which files it
// renders, which env keys it needs and what it injects into the entry file.
type Module struct {
	Name        string
	Description string
	Aliases     []string
	Kind        Kind

	Deps              []Dependency
	DevDeps           []Dependency
	TypeScriptDevDeps []Dependency // only installed for TypeScript projects

	Files []File
	Env   []EnvVar

	// Entry-file injection (feature modules only)
	Imports      []Import
	Middleware   []string
	EnsureListen bool

	NextSteps []string
}

// File maps an embedded template to a destination relative to the source root
// (project root for JavaScript, src/ for TypeScript).
type File struct {
	Template string
	Dest     string
	// ProjectRoot places the file relative to the project root even for
	// TypeScript (package.json, .env.example, prisma/schema.prisma).
	ProjectRoot bool
}

// EnvVar is a required .env key and how to obtain its value.
type EnvVar struct {
	Key      string
	Prompt   string
	Default  string
	Secret   bool
	Generate bool // default to a random hex token when left blank
}

// Import is a statement injected at the top of the entry file. An empty Name
// is a side-effect import. Paths starting with "./" are relative to the
// source root and get rewritten against the entry file location.
type Import struct {
	Name string
	Path string
}

func (i Import) Relative() bool {
	return strings.HasPrefix(i.Path, "./")
}

// Dependency is an npm package with an optional semver constraint.
type Dependency struct {
	Name    string
	Version string
}

// ParseDependency parses "name", "name@constraint", "@scope/name" and
// "@scope/name@constraint".
func ParseDependency(s string) (Dependency, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Dependency{}, fmt.Errorf("empty dependency")
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return Dependency{Name: s}, nil
	}
	d := Dependency{Name: s[:at], Version: s[at+1:]}
	if err := d.Validate(); err != nil {
		return Dependency{}, err
	}
	return d, nil
}

// Validate checks that a pinned version is a valid semver constraint.
func (d Dependency) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dependency without name")
	}
	if d.Version == "" {
		return nil
	}
	if _, err := semver.NewConstraint(d.Version); err != nil {
		return fmt.Errorf("dependency %s: invalid version %q: %w", d.Name, d.Version, err)
	}
	return nil
}

// String renders the argument passed to the package manager.
func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "@" + d.Version
}

// Deps builds dependencies from "name[@constraint]" strings. It panics on an
// invalid constraint and is meant for the static registry only.
func Deps(specs ...string) []Dependency {
	out := make([]Dependency, 0, len(specs))
	for _, s := range specs {
		d, err := ParseDependency(s)
		if err != nil {
			panic(err)
		}
		out = append(out, d)
	}
	return out
}

// Validate checks a descriptor for internal consistency.
func (m Module) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("module without name")
	}
	if m.Kind != KindFeature && m.Kind != KindStarter {
		return fmt.Errorf("module %s: invalid kind %q", m.Name, m.Kind)
	}
	for _, group := range [][]Dependency{m.Deps, m.DevDeps, m.TypeScriptDevDeps} {
		for _, d := range group {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("module %s: %w", m.Name, err)
			}
		}
	}
	seen := make(map[string]bool)
	for _, e := range m.Env {
		if e.Key == "" || strings.ContainsAny(e.Key, "= \t") {
			return fmt.Errorf("module %s: invalid env key %q", m.Name, e.Key)
		}
		if seen[e.Key] {
			return fmt.Errorf("module %s: duplicate env key %s", m.Name, e.Key)
		}
		seen[e.Key] = true
	}
	if m.Kind == KindStarter && (len(m.Imports) > 0 || len(m.Middleware) > 0) {
		return fmt.Errorf("module %s: starter modules do not patch an entry file", m.Name)
	}
	return nil
}

// Lookup resolves a module by name or alias, case-insensitively.
func Lookup(name string) (Module, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if mod, ok := Registry[key]; ok {
		return mod, nil
	}
	for _, mod := range Registry {
		for _, alias := range mod.Aliases {
			if alias == key {
				return mod, nil
			}
		}
	}
	return Module{}, fmt.Errorf("%w %q. Run 'devark modules' to see available modules", ErrUnknownModule, name)
}

// ModuleNames returns registry names in sorted order.
func ModuleNames() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderChoices maps the "oauth" umbrella command to its concrete modules.
var ProviderChoices = []string{"google-oauth", "github-oauth"}

// OAuthSelector is the umbrella name prompting for an OAuth provider.
const OAuthSelector = "oauth"
