package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/pkgmgr"
	"github.com/devark-dev/devark/internal/project"
	"github.com/devark-dev/devark/internal/prompt"
	"github.com/devark-dev/devark/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Version = "dev"

// env carries what commands would otherwise read from the process. Tests
// replace individual fields.
type env struct {
	prompter     prompt.Prompter
	runner       pkgmgr.Runner
	vars         map[string]string
	globalPolicy func() (config.Policy, error)
	getwd        func() (string, error)

	verbose bool
	logger  *zap.Logger
}

func defaultEnv() *env {
	return &env{
		vars:         environ(os.Environ()),
		globalPolicy: config.GlobalPolicy,
		getwd:        os.Getwd,
	}
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(defaultEnv())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr)
			ui.Yellow.Fprintln(os.Stderr, "  Installation aborted.")
		} else {
			ui.PrintError(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devark",
		Short:         "Scaffold Express.js backend modules into your project",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Encoding = "console"
			cfg.DisableStacktrace = true
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if e.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.logger = logger

			switch cmd.Name() {
			case "help", "version":
			default:
				ui.PrintBanner(cmd.OutOrStdout())
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	rootCmd.SetVersionTemplate("devark v{{.Version}}\n")
	rootCmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Print debug logs")

	rootCmd.AddCommand(newAddCmd(e))
	rootCmd.AddCommand(newInstallCmd(e))
	rootCmd.AddCommand(newInitCmd(e))
	rootCmd.AddCommand(newModulesCmd(e))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.SetHelpCommand(newHelpCmd(rootCmd))
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print devark version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "devark v%s\n", Version)
		},
	}
}

func (e *env) log() *zap.Logger {
	if e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

// prompterFor picks the interactive prompter, or one that accepts every
// default when --yes is set.
func (e *env) prompterFor(yes bool) prompt.Prompter {
	switch {
	case e.prompter != nil:
		return e.prompter
	case yes:
		return prompt.Defaults()
	}
	return prompt.NewHuhPrompter()
}

func (e *env) runnerFor(cmd *cobra.Command) pkgmgr.Runner {
	switch {
	case e.runner != nil:
		return e.runner
	case !e.verbose && prompt.IsInteractive():
		return ui.SpinnerRunner{Out: cmd.OutOrStdout(), ErrOut: cmd.ErrOrStderr()}
	}
	return pkgmgr.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
}

// policy layers the global and project .devark.yaml files.
func (e *env) policy(dir string) (config.Policy, *config.Manifest, error) {
	global, err := e.globalPolicy()
	if err != nil {
		return config.Policy{}, nil, err
	}
	manifest, err := config.LoadManifest(dir)
	if err != nil {
		return config.Policy{}, nil, err
	}
	p, err := config.ResolvePolicy(global, manifest)
	if err != nil {
		return config.Policy{}, nil, fmt.Errorf("%s: %w", config.ManifestFile, err)
	}
	return p, manifest, nil
}

// targetDir resolves --dir. Without it, feature commands walk up to the
// nearest package.json and starters use the working directory.
func (e *env) targetDir(flag string, walkUp bool) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if walkUp {
		return e.findProjectRoot()
	}
	return e.getwd()
}

// findProjectRoot walks up from cwd looking for package.json.
func (e *env) findProjectRoot() (string, error) {
	cwd, err := e.getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, project.PackageJSON)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// Fallback to cwd.
	return cwd, nil
}

func environ(kv []string) map[string]string {
	out := make(map[string]string, len(kv))
	for _, pair := range kv {
		if k, v, ok := strings.Cut(pair, "="); ok {
			out[k] = v
		}
	}
	return out
}
