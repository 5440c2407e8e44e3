package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/ui"
	"github.com/spf13/cobra"
)

func newModulesCmd(e *env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:     "modules",
		Aliases: []string{"list"},
		Short:   "List available modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := e.targetDir(dir, true)
			if err != nil {
				return err
			}
			// A broken manifest only hides the installed markers.
			manifest, _ := config.LoadManifest(root)
			ui.PrintModules(cmd.OutOrStdout(), moduleDisplays(manifest))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Project directory (default: nearest package.json)")
	return cmd
}

func moduleDisplays(manifest *config.Manifest) []ui.ModuleDisplay {
	var modules []ui.ModuleDisplay
	for _, name := range config.ModuleNames() {
		mod := config.Registry[name]

		deps := make([]string, 0, len(mod.Deps))
		for _, d := range mod.Deps {
			deps = append(deps, d.Name)
		}

		modules = append(modules, ui.ModuleDisplay{
			Name:        name,
			Description: mod.Description,
			Aliases:     mod.Aliases,
			Starter:     mod.Kind == config.KindStarter,
			Installed:   manifest != nil && manifest.IsInstalled(name),
			Deps:        strings.Join(deps, ", "),
		})
	}
	return modules
}

func newHelpCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Show help for devark or a command",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				target, _, err := root.Find(args)
				if err != nil || target == root {
					return fmt.Errorf("unknown help topic %q", strings.Join(args, " "))
				}
				return target.Help()
			}
			printHelp(cmd.OutOrStdout(), root)
			return nil
		},
	}
}

func printHelp(w io.Writer, root *cobra.Command) {
	ui.PrintBanner(w)

	ui.Bold.Fprintln(w, "  Usage")
	fmt.Fprintln(w, "    devark <command> [flags]")
	fmt.Fprintln(w)

	ui.Bold.Fprintln(w, "  Commands")
	for _, c := range root.Commands() {
		if !c.IsAvailableCommand() && c.Name() != "help" {
			continue
		}
		fmt.Fprintf(w, "    %-10s %s\n", c.Name(), ui.Dim.Sprint(c.Short))
	}
	fmt.Fprintln(w)

	ui.Bold.Fprintln(w, "  Modules")
	for _, name := range config.ModuleNames() {
		fmt.Fprintf(w, "    %-14s %s\n", name, ui.Dim.Sprint(config.Registry[name].Description))
	}
	fmt.Fprintf(w, "    %-14s %s\n", config.OAuthSelector, ui.Dim.Sprint("Choose between "+strings.Join(config.ProviderChoices, " and ")))
	fmt.Fprintln(w)

	ui.Bold.Fprintln(w, "  Examples")
	fmt.Fprintln(w, "    devark add google-oauth")
	fmt.Fprintln(w, "    devark add jwt --lang ts --entry src/server.ts")
	fmt.Fprintln(w, "    devark add node-mongo --dir my-api")
	fmt.Fprintln(w)
	ui.Dim.Fprintln(w, "  Run 'devark <command> --help' for command flags.")
}
