package scaffold

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/envfile"
	"github.com/devark-dev/devark/internal/inject"
	"github.com/devark-dev/devark/internal/pkgmgr"
	"github.com/devark-dev/devark/internal/project"
	"github.com/devark-dev/devark/internal/prompt"
	"go.uber.org/zap"
)

var (
	ErrEntryNotFound  = errors.New("entry file not found")
	ErrProjectExists  = errors.New("project already exists")
	ErrDryRunNoTarget = errors.New("dry run needs an existing Node.js project")
)

// Prompt titles. Scripted prompters key their answers on these.
const (
	PromptLanguage = "Which language does your project use?"
	PromptEntry    = "Entry file path (relative to the project root):"
	PromptCreate   = "No valid package.json found. Create a new Node.js project here?"
)

// PromptCreateEntry is the confirmation asked when the entry file is missing.
func PromptCreateEntry(entry string) string {
	return fmt.Sprintf("Entry file %s does not exist. Create it?", entry)
}

// Options configures a single install run.
type Options struct {
	Dir      string
	Env      map[string]string
	Prompter prompt.Prompter
	Runner   pkgmgr.Runner
	Logger   *zap.Logger
	Policy   config.Policy

	// Language and Entry skip their prompts when set.
	Language project.Language
	Entry    string

	Force       bool
	DryRun      bool
	SkipInstall bool
	CreateEntry bool
}

func (o Options) withDefaults() (Options, error) {
	if o.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return o, err
		}
		o.Dir = wd
	}
	abs, err := filepath.Abs(o.Dir)
	if err != nil {
		return o, err
	}
	o.Dir = abs
	if o.Env == nil {
		o.Env = map[string]string{}
	}
	if o.Prompter == nil {
		o.Prompter = prompt.Defaults()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.Policy = config.DefaultPolicy().Merge(o.Policy)
	return o, o.Policy.Validate()
}

func (o Options) fallbackManager() project.Manager {
	if m, err := project.ParseManager(o.Policy.FallbackManager); err == nil {
		return m
	}
	return project.NPM
}

// Install runs a module descriptor against a project.
func Install(ctx context.Context, mod config.Module, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := mod.Validate(); err != nil {
		return nil, err
	}
	if mod.Kind == config.KindStarter {
		return installStarter(ctx, mod, opts)
	}
	return installFeature(ctx, mod, opts)
}

func installFeature(ctx context.Context, mod config.Module, opts Options) (*Result, error) {
	log := opts.Logger.With(zap.String("module", mod.Name), zap.String("dir", opts.Dir))
	res := &Result{Module: mod.Name, Dir: opts.Dir, DryRun: opts.DryRun}

	order, err := project.ParseManagerOrder(opts.Policy.ManagerOrder)
	if err != nil {
		return nil, err
	}

	// Validation and prompts come first so a declined or cancelled run
	// leaves the project untouched.
	info, verr := project.Validate(opts.Dir, order)
	needsBootstrap := false
	if verr != nil {
		if opts.DryRun {
			return nil, fmt.Errorf("%w: %w", ErrDryRunNoTarget, verr)
		}
		create := false
		if err := opts.Prompter.Confirm(PromptCreate, &create); err != nil {
			return nil, err
		}
		if !create {
			return nil, verr
		}
		needsBootstrap = true
	}

	manifest, err := config.LoadManifest(opts.Dir)
	if err != nil {
		return nil, err
	}
	if manifest.IsInstalled(mod.Name) && !opts.Force {
		res.info(fmt.Sprintf("%s is already installed (use --force to reinstall)", mod.Name))
		return res, nil
	}

	lang, err := chooseLanguage(opts)
	if err != nil {
		return nil, err
	}
	entry, err := chooseEntry(opts, lang)
	if err != nil {
		return nil, err
	}

	if !needsBootstrap {
		resolved, ok := project.ResolveEntry(opts.Dir, entry, lang)
		if ok {
			entry = resolved
		} else if err := confirmMissingEntry(opts, entry); err != nil {
			return nil, err
		}
	}

	pairs, err := collectEnv(opts, mod, res)
	if err != nil {
		return nil, err
	}

	// Writes start here.
	var bootDeps, bootDevDeps []config.Dependency
	if needsBootstrap {
		log.Debug("bootstrapping project", zap.String("entry", entry))
		if bootDeps, bootDevDeps, err = bootstrap(opts, res, lang, entry); err != nil {
			return res, err
		}
		info, err = project.Validate(opts.Dir, order)
		if err != nil {
			return res, err
		}
	}

	manager := info.Manager
	if manager == project.ManagerNone {
		manager = project.ManagerFromEnv(opts.Env)
	}
	pctx := project.Context{Dir: opts.Dir, Env: opts.Env, Manager: manager, Language: lang, Entry: entry}
	res.Language, res.Entry, res.Manager = lang, entry, manager
	log.Debug("project resolved",
		zap.String("language", string(lang)),
		zap.String("entry", entry),
		zap.Stringer("manager", manager))

	name := info.Name
	if name == "" {
		name = packageName(opts.Dir)
	}
	spec := entrySpec(mod, pctx)
	current, _, err := readRegular(pctx.EntryPath())
	if err != nil {
		return res, err
	}
	data := TemplateData{
		ProjectName: name,
		TypeScript:  lang == project.TypeScript,
		CommonJS:    inject.IsCommonJS(current, spec),
		Ext:         lang.Ext(),
		Module:      mod.Name,
	}
	if err := renderFiles(opts, res, mod, pctx, data); err != nil {
		return res, err
	}

	patched, err := patchEntry(opts, res, spec, pctx)
	if err != nil {
		return res, err
	}

	if err := updateEnv(opts, res, pairs); err != nil {
		return res, err
	}

	upd := project.PackageUpdate{Scripts: project.DefaultScripts(lang, entry)}
	if lang == project.JavaScript && usesESM(patched) {
		upd.Type = "module"
	}
	if err := updatePackage(opts, res, upd); err != nil {
		return res, err
	}

	devDeps := append([]config.Dependency(nil), mod.DevDeps...)
	if lang == project.TypeScript {
		devDeps = append(devDeps, mod.TypeScriptDevDeps...)
	}
	deps := mergeDeps(bootDeps, mod.Deps)
	devDeps = mergeDeps(bootDevDeps, devDeps)
	if err := installDeps(ctx, opts, res, manager, deps, devDeps); err != nil {
		return res, err
	}

	if !opts.DryRun {
		manifest.Record(mod.Name, string(lang), entry)
		if err := manifest.Save(opts.Dir); err != nil {
			return res, fmt.Errorf("save %s: %w", config.ManifestFile, err)
		}
	}

	res.NextSteps = append(res.NextSteps, mod.NextSteps...)
	res.NextSteps = append(res.NextSteps, "Start the server with "+pkgmgr.RunScriptCommand(orFallback(manager, opts), "dev"))
	res.done(fmt.Sprintf("%s setup completed", mod.Name))
	return res, nil
}

func installStarter(ctx context.Context, mod config.Module, opts Options) (*Result, error) {
	res := &Result{Module: mod.Name, Dir: opts.Dir, DryRun: opts.DryRun, Language: project.JavaScript, Entry: "app.js"}

	pkgPath := filepath.Join(opts.Dir, project.PackageJSON)
	if _, err := os.Stat(pkgPath); err == nil && !opts.Force {
		return nil, fmt.Errorf("%w: %s already exists (use --force to overwrite)", ErrProjectExists, pkgPath)
	}

	order, err := project.ParseManagerOrder(opts.Policy.ManagerOrder)
	if err != nil {
		return nil, err
	}
	manager := project.ManagerFromEnv(opts.Env)
	if manager == project.ManagerNone {
		manager = project.DetectManager(opts.Dir, order)
	}
	res.Manager = manager
	opts.Logger.Debug("generating starter",
		zap.String("module", mod.Name),
		zap.String("dir", opts.Dir),
		zap.Stringer("manager", manager))

	if !opts.DryRun {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, err
		}
	}

	run := orFallback(manager, opts)
	data := TemplateData{
		ProjectName: packageName(opts.Dir),
		Ext:         "js",
		Module:      mod.Name,
		InstallCmd:  pkgmgr.InstallAllCommand(run),
		DevCmd:      pkgmgr.RunScriptCommand(run, "dev"),
	}
	pctx := project.Context{Dir: opts.Dir, Env: opts.Env, Manager: manager, Language: project.JavaScript, Entry: "app.js"}
	if err := renderFiles(opts, res, mod, pctx, data); err != nil {
		return res, err
	}

	if err := installDeps(ctx, opts, res, manager, mod.Deps, mod.DevDeps); err != nil {
		return res, err
	}

	if !opts.DryRun {
		manifest, err := config.LoadManifest(opts.Dir)
		if err != nil {
			return res, err
		}
		manifest.Record(mod.Name, string(project.JavaScript), "app.js")
		if err := manifest.Save(opts.Dir); err != nil {
			return res, fmt.Errorf("save %s: %w", config.ManifestFile, err)
		}
	}

	res.NextSteps = append(res.NextSteps, mod.NextSteps...)
	res.NextSteps = append(res.NextSteps, "Start the server with "+data.DevCmd)
	res.done(fmt.Sprintf("%s project generated", mod.Name))
	return res, nil
}

func chooseLanguage(opts Options) (project.Language, error) {
	if opts.Language != "" {
		return opts.Language, nil
	}
	def := project.DetectLanguage(opts.Dir)
	if opts.Policy.Language != "" {
		if l, err := project.ParseLanguage(opts.Policy.Language); err == nil {
			def = l
		}
	}
	v := string(def)
	if err := opts.Prompter.Select(PromptLanguage, []string{string(project.JavaScript), string(project.TypeScript)}, &v); err != nil {
		return "", err
	}
	return project.ParseLanguage(v)
}

func chooseEntry(opts Options, lang project.Language) (string, error) {
	entry := opts.Entry
	if entry == "" {
		entry = lang.DefaultEntry()
		if err := opts.Prompter.Input(PromptEntry, &entry); err != nil {
			return "", err
		}
	}
	entry = strings.TrimSpace(entry)
	if entry == "" {
		entry = lang.DefaultEntry()
	}
	if filepath.IsAbs(entry) {
		rel, err := filepath.Rel(opts.Dir, entry)
		if err != nil {
			return "", err
		}
		entry = rel
	}
	entry = filepath.ToSlash(filepath.Clean(entry))
	if entry == ".." || strings.HasPrefix(entry, "../") {
		return "", fmt.Errorf("entry file %s is outside the project", entry)
	}
	return entry, nil
}

func confirmMissingEntry(opts Options, entry string) error {
	if opts.CreateEntry || opts.Policy.MissingEntry == config.MissingEntryCreate {
		return nil
	}
	create := false
	if err := opts.Prompter.Confirm(PromptCreateEntry(entry), &create); err != nil {
		return err
	}
	if !create {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entry)
	}
	return nil
}

func collectEnv(opts Options, mod config.Module, res *Result) ([]envfile.Pair, error) {
	if len(mod.Env) == 0 {
		return nil, nil
	}
	current, _, err := readOptional(filepath.Join(opts.Dir, envfile.FileName))
	if err != nil {
		return nil, err
	}
	existing := envfile.Parse(current)

	pairs := make([]envfile.Pair, 0, len(mod.Env))
	for _, v := range mod.Env {
		value := existing[v.Key]
		if value == "" {
			value = v.Default
		}
		ask := opts.Prompter.Input
		if v.Secret {
			ask = opts.Prompter.SecretInput
		}
		if err := ask(v.Prompt, &value); err != nil {
			return nil, err
		}
		value = strings.TrimSpace(value)
		if value == "" && v.Generate {
			if value, err = randomToken(32); err != nil {
				return nil, err
			}
		}
		if value == "" {
			res.warn(fmt.Sprintf("%s was left empty, set it in %s", v.Key, envfile.FileName))
		}
		pairs = append(pairs, envfile.Pair{Key: v.Key, Value: value})
	}
	return pairs, nil
}

func renderFiles(opts Options, res *Result, mod config.Module, pctx project.Context, data TemplateData) error {
	r := &Renderer{Force: opts.Force, DryRun: opts.DryRun}
	for _, f := range mod.Files {
		dest := destPath(pctx, f)
		_, statErr := os.Stat(dest)
		existed := statErr == nil

		written, err := r.RenderFile(f.Template, dest, data)
		if err != nil {
			return fmt.Errorf("generate %s: %w", res.rel(dest), err)
		}
		switch {
		case !written:
			res.skipped(dest)
		case existed:
			res.modified(dest)
		default:
			res.created(dest)
		}
	}
	return nil
}

func destPath(pctx project.Context, f config.File) string {
	rel := filepath.FromSlash(strings.ReplaceAll(f.Dest, config.ExtPlaceholder, pctx.Language.Ext()))
	if f.ProjectRoot {
		return filepath.Join(pctx.Dir, rel)
	}
	return filepath.Join(pctx.SourceRoot(), rel)
}

// importPath rewrites a source-root relative import against the entry file
// location. Relative imports always carry ".js" so they resolve under both
// Node ESM and TypeScript NodeNext.
func importPath(pctx project.Context, im config.Import) string {
	if !im.Relative() {
		return im.Path
	}
	target := filepath.Join(pctx.SourceRoot(), filepath.FromSlash(strings.TrimPrefix(im.Path, "./")))
	rel, err := filepath.Rel(filepath.Dir(pctx.EntryPath()), target)
	if err != nil {
		return im.Path + ".js"
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel + ".js"
}

func entrySpec(mod config.Module, pctx project.Context) inject.Spec {
	spec := inject.Spec{
		Module:       mod.Name,
		Middleware:   mod.Middleware,
		EnsureListen: mod.EnsureListen,
		TypeScript:   pctx.Language == project.TypeScript,
	}
	for _, im := range mod.Imports {
		spec.Imports = append(spec.Imports, inject.Import{Name: im.Name, Path: importPath(pctx, im)})
	}
	return spec
}

func patchEntry(opts Options, res *Result, spec inject.Spec, pctx project.Context) (string, error) {
	path := pctx.EntryPath()
	before, existed, err := readRegular(path)
	if err != nil {
		return "", err
	}

	var after string
	switch {
	case opts.DryRun:
		if after, err = inject.Patch(before, spec); err != nil {
			return "", fmt.Errorf("patch %s: %w", pctx.Entry, err)
		}
	case existed:
		if before, after, err = inject.PatchFile(path, spec); err != nil {
			return "", fmt.Errorf("patch %s: %w", pctx.Entry, err)
		}
	default:
		if after, err = inject.Patch("", spec); err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(after), 0644); err != nil {
			return "", err
		}
	}
	res.change(path, before, after, existed)
	return after, nil
}

func updateEnv(opts Options, res *Result, pairs []envfile.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	path := filepath.Join(opts.Dir, envfile.FileName)
	before, existed, err := readOptional(path)
	if err != nil {
		return err
	}
	after := envfile.Merge(before, pairs)
	if !opts.DryRun {
		if before, after, err = envfile.Update(opts.Dir, pairs); err != nil {
			return err
		}
	}
	res.change(path, before, after, existed)
	return nil
}

func updatePackage(opts Options, res *Result, upd project.PackageUpdate) error {
	path := filepath.Join(opts.Dir, project.PackageJSON)
	if opts.DryRun {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, _, err := project.UpdatePackageJSON(data, upd)
		if err != nil {
			return err
		}
		res.change(path, string(data), string(out), true)
		return nil
	}
	before, after, err := project.EnsurePackage(opts.Dir, upd)
	if err != nil {
		return err
	}
	res.change(path, before, after, true)
	return nil
}

func installDeps(ctx context.Context, opts Options, res *Result, manager project.Manager, deps, devDeps []config.Dependency) error {
	if len(deps) == 0 && len(devDeps) == 0 {
		return nil
	}
	manual := func(m project.Manager) {
		if len(deps) > 0 {
			res.ManualInstall = append(res.ManualInstall, pkgmgr.ManualCommand(m, deps, false))
		}
		if len(devDeps) > 0 {
			res.ManualInstall = append(res.ManualInstall, pkgmgr.ManualCommand(m, devDeps, true))
		}
	}

	switch {
	case opts.DryRun, opts.SkipInstall:
		manual(orFallback(manager, opts))
		return nil
	case manager == project.ManagerNone:
		res.warn("No package manager detected, install the dependencies manually")
		manual(opts.fallbackManager())
		return nil
	}

	inst := &pkgmgr.Installer{Dir: opts.Dir, Manager: manager, Runner: opts.Runner, Logger: opts.Logger}
	if err := inst.Install(ctx, deps, devDeps); err != nil {
		manual(manager)
		return fmt.Errorf("install dependencies: %w", err)
	}
	res.Installed = true
	res.done(fmt.Sprintf("Dependencies installed with %s", manager))
	return nil
}

func orFallback(m project.Manager, opts Options) project.Manager {
	if m == project.ManagerNone {
		return opts.fallbackManager()
	}
	return m
}

// mergeDeps concatenates groups, keeping the first occurrence of a name.
func mergeDeps(groups ...[]config.Dependency) []config.Dependency {
	seen := make(map[string]bool)
	var out []config.Dependency
	for _, g := range groups {
		for _, d := range g {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}
	return out
}

func usesESM(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "import ") || strings.HasPrefix(t, "export ") {
			return true
		}
	}
	return false
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// readOptional returns a file's content, or "" when it does not exist.
func readOptional(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// readRegular is readOptional that refuses directories and other
// non-regular files.
func readRegular(path string) (string, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("%s: %w", path, inject.ErrNotRegularFile)
	}
	return readOptional(path)
}
