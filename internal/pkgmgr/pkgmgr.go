// Package pkgmgr installs npm dependencies through the project's package
// manager.
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/project"
	"go.uber.org/zap"
)

var ErrNoManager = errors.New("no package manager detected")

// InstallError is returned when the package manager exits non-zero.
type InstallError struct {
	Manager  project.Manager
	Command  string
	ExitCode int
	Err      error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d: %v", e.Command, e.ExitCode, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Runner runs a command in dir and waits for it.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands as child processes with inherited stdio.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	// NoStdin runs the child without a stdin, for captured runs.
	NoStdin bool
}

var execCommandContext = exec.CommandContext

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := execCommandContext(ctx, name, args...)
	cmd.Dir = dir
	if !r.NoStdin {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// Command builds the install invocation for a manager.
func Command(m project.Manager, deps []config.Dependency, dev bool) (string, []string, error) {
	var args []string
	switch m {
	case project.NPM:
		args = []string{"install"}
		if dev {
			args = append(args, "--save-dev")
		}
	case project.Yarn:
		args = []string{"add"}
		if dev {
			args = append(args, "--dev")
		}
	case project.PNPM:
		args = []string{"add"}
		if dev {
			args = append(args, "--save-dev")
		}
	case project.Bun:
		args = []string{"add"}
		if dev {
			args = append(args, "--dev")
		}
	default:
		return "", nil, ErrNoManager
	}
	for _, d := range deps {
		args = append(args, d.String())
	}
	return string(m), args, nil
}

// ManualCommand is the instruction printed when nothing could be installed
// automatically.
func ManualCommand(fallback project.Manager, deps []config.Dependency, dev bool) string {
	if fallback == project.ManagerNone {
		fallback = project.NPM
	}
	name, args, _ := Command(fallback, deps, dev)
	return name + " " + strings.Join(args, " ")
}

// InstallAllCommand installs everything already listed in package.json.
func InstallAllCommand(m project.Manager) string {
	switch m {
	case project.Yarn:
		return "yarn"
	case project.PNPM, project.Bun:
		return string(m) + " install"
	}
	return "npm install"
}

// RunScriptCommand runs a package.json script.
func RunScriptCommand(m project.Manager, script string) string {
	switch m {
	case project.Yarn, project.PNPM:
		return string(m) + " " + script
	case project.Bun:
		return "bun run " + script
	}
	return "npm run " + script
}

// Installer runs install commands for one project directory.
type Installer struct {
	Dir     string
	Manager project.Manager
	Runner  Runner
	Logger  *zap.Logger
}

// Install installs runtime deps then dev deps. Empty groups are skipped.
func (i *Installer) Install(ctx context.Context, deps, devDeps []config.Dependency) error {
	if i.Manager == project.ManagerNone {
		return ErrNoManager
	}
	for _, group := range []struct {
		deps []config.Dependency
		dev  bool
	}{{deps, false}, {devDeps, true}} {
		if len(group.deps) == 0 {
			continue
		}
		if err := i.run(ctx, group.deps, group.dev); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) run(ctx context.Context, deps []config.Dependency, dev bool) error {
	name, args, err := Command(i.Manager, deps, dev)
	if err != nil {
		return err
	}
	line := name + " " + strings.Join(args, " ")
	i.logger().Debug("running package manager", zap.String("dir", i.Dir), zap.String("command", line))

	runner := i.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	if err := runner.Run(ctx, i.Dir, name, args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &InstallError{Manager: i.Manager, Command: line, ExitCode: code, Err: err}
	}
	return nil
}

func (i *Installer) logger() *zap.Logger {
	if i.Logger == nil {
		return zap.NewNop()
	}
	return i.Logger
}
