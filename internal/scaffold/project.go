package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/pkgmgr"
	"github.com/devark-dev/devark/internal/project"
	"go.uber.org/zap"
)

// Init bootstraps a new Express project in opts.Dir and installs its
// dependencies.
func Init(ctx context.Context, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	res := &Result{Module: "init", Dir: opts.Dir, DryRun: opts.DryRun}

	if project.IsValid(opts.Dir) && !opts.Force {
		return nil, fmt.Errorf("%w: %s already contains a package.json (use --force to overwrite)", ErrProjectExists, opts.Dir)
	}

	lang, err := chooseLanguage(opts)
	if err != nil {
		return nil, err
	}
	entry, err := chooseEntry(opts, lang)
	if err != nil {
		return nil, err
	}
	res.Language, res.Entry = lang, entry

	deps, devDeps, err := bootstrap(opts, res, lang, entry)
	if err != nil {
		return res, err
	}

	order, err := project.ParseManagerOrder(opts.Policy.ManagerOrder)
	if err != nil {
		return res, err
	}
	manager := project.DetectManager(opts.Dir, order)
	if manager == project.ManagerNone {
		manager = project.ManagerFromEnv(opts.Env)
	}
	res.Manager = manager

	if err := installDeps(ctx, opts, res, manager, deps, devDeps); err != nil {
		return res, err
	}

	if !opts.DryRun {
		manifest, err := config.LoadManifest(opts.Dir)
		if err != nil {
			return res, err
		}
		if err := manifest.Save(opts.Dir); err != nil {
			return res, fmt.Errorf("save %s: %w", config.ManifestFile, err)
		}
	}

	res.NextSteps = append(res.NextSteps,
		"Add a module with devark add <module>",
		"Start the server with "+pkgmgr.RunScriptCommand(orFallback(manager, opts), "dev"),
	)
	res.done("Node.js project created")
	return res, nil
}

// bootstrap writes package.json, the entry file, .gitignore and, for
// TypeScript, tsconfig.json. It returns the dependencies the new project
// needs.
func bootstrap(opts Options, res *Result, lang project.Language, entry string) (deps, devDeps []config.Dependency, err error) {
	if !opts.DryRun {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create project dir: %w", err)
		}
	}
	name := packageName(opts.Dir)
	opts.Logger.Debug("writing project files", zap.String("name", name), zap.String("language", string(lang)))

	pkgPath := filepath.Join(opts.Dir, project.PackageJSON)
	before, existed, err := readOptional(pkgPath)
	if err != nil {
		return nil, nil, err
	}
	if existed && !opts.Force && project.IsValid(opts.Dir) {
		res.skipped(pkgPath)
	} else {
		pkg, err := project.NewPackageJSON(name, lang, entry)
		if err != nil {
			return nil, nil, fmt.Errorf("generate %s: %w", project.PackageJSON, err)
		}
		if !opts.DryRun {
			if err := os.WriteFile(pkgPath, pkg, 0644); err != nil {
				return nil, nil, fmt.Errorf("generate %s: %w", project.PackageJSON, err)
			}
		}
		res.change(pkgPath, before, string(pkg), existed)
	}

	files := []struct {
		tmpl string
		dest string
	}{
		{"project/entry." + lang.Ext() + ".tmpl", filepath.Join(opts.Dir, filepath.FromSlash(entry))},
		{"project/gitignore.tmpl", filepath.Join(opts.Dir, ".gitignore")},
	}
	if lang == project.TypeScript {
		files = append(files, struct {
			tmpl string
			dest string
		}{"project/tsconfig.json.tmpl", filepath.Join(opts.Dir, "tsconfig.json")})
	}

	r := &Renderer{Force: opts.Force, DryRun: opts.DryRun}
	data := TemplateData{ProjectName: name, TypeScript: lang == project.TypeScript, Ext: lang.Ext()}
	for _, f := range files {
		_, statErr := os.Stat(f.dest)
		written, err := r.RenderFile(f.tmpl, f.dest, data)
		if err != nil {
			return nil, nil, fmt.Errorf("generate %s: %w", filepath.Base(f.dest), err)
		}
		switch {
		case !written:
			res.skipped(f.dest)
		case statErr == nil:
			res.modified(f.dest)
		default:
			res.created(f.dest)
		}
	}

	deps = config.Deps("express")
	devDeps = config.Deps("nodemon")
	if lang == project.TypeScript {
		devDeps = append(devDeps, config.Deps("typescript", "ts-node", "@types/node", "@types/express")...)
	}
	return deps, devDeps, nil
}
