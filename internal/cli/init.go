package cli

import (
	"github.com/devark-dev/devark/internal/project"
	"github.com/devark-dev/devark/internal/scaffold"
	"github.com/devark-dev/devark/internal/ui"
	"github.com/spf13/cobra"
)

func newInitCmd(e *env) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a new Express project",
		Long: `Create a minimal Express project: package.json with start and dev
scripts, an entry file, .gitignore and, for TypeScript, tsconfig.json.

Examples:
  devark init
  devark init my-api --lang ts
  devark init --yes --skip-install`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.dir = args[0]
			}
			return runInit(cmd, e, f)
		},
	}
	f.register(cmd)
	return cmd
}

func runInit(cmd *cobra.Command, e *env, f addFlags) error {
	dir, err := e.targetDir(f.dir, false)
	if err != nil {
		return err
	}
	policy, _, err := e.policy(dir)
	if err != nil {
		return err
	}

	opts := scaffold.Options{
		Dir:         dir,
		Env:         e.vars,
		Prompter:    e.prompterFor(f.yes),
		Runner:      e.runnerFor(cmd),
		Logger:      e.log(),
		Policy:      policy,
		Entry:       f.entry,
		Force:       f.force,
		DryRun:      f.dryRun,
		SkipInstall: f.skipInstall,
	}
	if f.lang != "" {
		if opts.Language, err = project.ParseLanguage(f.lang); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	ui.PrintAddHeader(out, "a new project", dir)

	res, err := scaffold.Init(cmd.Context(), opts)
	ui.PrintResult(out, res)
	return err
}
