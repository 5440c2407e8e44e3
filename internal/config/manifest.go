package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const ManifestFile = ".devark.yaml"

// Missing entry-file policies.
const (
	MissingEntryAbort  = "abort"
	MissingEntryCreate = "create"
)

// Manifest tracks the policy and installed modules of a devark-managed project.
type Manifest struct {
	Policy    Policy                  `yaml:"policy,omitempty"`
	Modules   map[string]ModuleRecord `yaml:"modules,omitempty"`
	CreatedAt time.Time               `yaml:"created_at,omitempty"`
	UpdatedAt time.Time               `yaml:"updated_at,omitempty"`
}

// Policy holds the knobs that differed between historic releases of the tool.
type Policy struct {
	// ManagerOrder is the lockfile probe order, highest priority first.
	ManagerOrder []string `yaml:"manager_order,omitempty"`
	// FallbackManager is suggested in manual install instructions.
	FallbackManager string `yaml:"fallback_manager,omitempty"`
	// MissingEntry is "abort" or "create".
	MissingEntry string `yaml:"missing_entry,omitempty"`
	// Language preselects JavaScript or TypeScript in prompts.
	Language string `yaml:"language,omitempty"`
}

type ModuleRecord struct {
	Language    string    `yaml:"language"`
	Entry       string    `yaml:"entry,omitempty"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// DefaultPolicy is pnpm-first with abort on missing entry files.
func DefaultPolicy() Policy {
	return Policy{
		ManagerOrder:    []string{"pnpm", "yarn", "npm", "bun"},
		FallbackManager: "npm",
		MissingEntry:    MissingEntryAbort,
	}
}

// Merge overlays the non-empty fields of o onto p.
func (p Policy) Merge(o Policy) Policy {
	if len(o.ManagerOrder) > 0 {
		p.ManagerOrder = append([]string(nil), o.ManagerOrder...)
	}
	if o.FallbackManager != "" {
		p.FallbackManager = o.FallbackManager
	}
	if o.MissingEntry != "" {
		p.MissingEntry = o.MissingEntry
	}
	if o.Language != "" {
		p.Language = o.Language
	}
	return p
}

func (p Policy) Validate() error {
	switch p.MissingEntry {
	case MissingEntryAbort, MissingEntryCreate:
	default:
		return fmt.Errorf("invalid missing_entry %q (want %q or %q)", p.MissingEntry, MissingEntryAbort, MissingEntryCreate)
	}
	for _, m := range p.ManagerOrder {
		switch m {
		case "npm", "yarn", "pnpm", "bun":
		default:
			return fmt.Errorf("invalid manager_order entry %q", m)
		}
	}
	return nil
}

// LoadManifest reads .devark.yaml from projectRoot. A missing file yields an
// empty manifest.
func LoadManifest(projectRoot string) (*Manifest, error) {
	m, err := readManifest(filepath.Join(projectRoot, ManifestFile))
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = NewManifest()
	}
	if m.Modules == nil {
		m.Modules = make(map[string]ModuleRecord)
	}
	return m, nil
}

// GlobalPolicy reads the policy section of ~/.devark.yaml, if any.
func GlobalPolicy() (Policy, error) {
	path, err := homedir.Expand("~/" + ManifestFile)
	if err != nil {
		return Policy{}, nil
	}
	m, err := readManifest(path)
	if err != nil || m == nil {
		return Policy{}, err
	}
	return m.Policy, nil
}

// ResolvePolicy layers defaults, the global file and the project manifest.
func ResolvePolicy(global Policy, m *Manifest) (Policy, error) {
	p := DefaultPolicy().Merge(global)
	if m != nil {
		p = p.Merge(m.Policy)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}

func (m *Manifest) Save(projectRoot string) error {
	m.UpdatedAt = time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ManifestFile, err)
	}
	return os.WriteFile(filepath.Join(projectRoot, ManifestFile), data, 0644)
}

// IsInstalled reports whether the module has been recorded as installed.
func (m *Manifest) IsInstalled(name string) bool {
	_, ok := m.Modules[name]
	return ok
}

func (m *Manifest) Record(name, language, entry string) {
	if m.Modules == nil {
		m.Modules = make(map[string]ModuleRecord)
	}
	m.Modules[name] = ModuleRecord{
		Language:    language,
		Entry:       entry,
		InstalledAt: time.Now(),
	}
}

func NewManifest() *Manifest {
	return &Manifest{
		Modules: make(map[string]ModuleRecord),
	}
}
