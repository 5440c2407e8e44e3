package cli

import (
	"strings"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/project"
	"github.com/devark-dev/devark/internal/scaffold"
	"github.com/devark-dev/devark/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type addFlags struct {
	dir         string
	lang        string
	entry       string
	yes         bool
	force       bool
	dryRun      bool
	skipInstall bool
	createEntry bool
}

func newAddCmd(e *env) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add <module>",
		Short: "Add a backend module to an Express project",
		Long: `Add a feature module to the current Express project, or generate a
starter project.

Feature modules (patch the entry file, update .env, install deps):
  devark add google-oauth
  devark add github-oauth
  devark add oauth          (choose a provider)
  devark add resend-otp
  devark add jwt

Starter projects (generate a full project in the target directory):
  devark add node-mongo
  devark add node-postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, e, f, args[0])
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.createEntry, "create-entry", false, "Create the entry file when it does not exist")
	return cmd
}

func (f *addFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "Project directory (default: nearest package.json)")
	cmd.Flags().StringVar(&f.lang, "lang", "", "Project language: js or ts")
	cmd.Flags().StringVar(&f.entry, "entry", "", "Entry file relative to the project root")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Accept every default without prompting")
	cmd.Flags().BoolVar(&f.force, "force", false, "Overwrite existing files and reinstall")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVar(&f.skipInstall, "skip-install", false, "Do not run the package manager")
}

func runAdd(cmd *cobra.Command, e *env, f addFlags, name string) error {
	prompter := e.prompterFor(f.yes)

	if strings.EqualFold(strings.TrimSpace(name), config.OAuthSelector) {
		choice := ""
		if err := prompter.Select("Which OAuth provider?", config.ProviderChoices, &choice); err != nil {
			return err
		}
		name = choice
	}

	mod, err := config.Lookup(name)
	if err != nil {
		return err
	}

	dir, err := e.targetDir(f.dir, mod.Kind == config.KindFeature)
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
		Prompter:    prompter,
		Runner:      e.runnerFor(cmd),
		Logger:      e.log(),
		Policy:      policy,
		Entry:       f.entry,
		Force:       f.force,
		DryRun:      f.dryRun,
		SkipInstall: f.skipInstall,
		CreateEntry: f.createEntry,
	}
	if f.lang != "" {
		if opts.Language, err = project.ParseLanguage(f.lang); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	ui.PrintAddHeader(out, mod.Name, dir)
	e.log().Debug("installing module", zap.String("module", mod.Name), zap.String("dir", dir))

	res, err := scaffold.Install(cmd.Context(), mod, opts)
	ui.PrintResult(out, res)
	return err
}

func newInstallCmd(e *env) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:        "install <module>",
		Short:      "Deprecated: use 'devark add' instead",
		Deprecated: "use 'devark add <module>' instead",
		Args:       cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, e, f, args[0])
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.createEntry, "create-entry", false, "Create the entry file when it does not exist")
	return cmd
}
