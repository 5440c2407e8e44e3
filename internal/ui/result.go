package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/devark-dev/devark/internal/scaffold"
)

// PrintResult renders what an install changed, followed by manual steps.
func PrintResult(w io.Writer, res *scaffold.Result) {
	if res == nil {
		return
	}
	fmt.Fprintln(w)
	if res.DryRun {
		Yellow.Fprintln(w, "  Dry run: nothing was written.")
		fmt.Fprintln(w)
	}

	for _, m := range res.Messages {
		switch m.Level {
		case scaffold.LevelWarn:
			StepWarn(w, m.Text)
		case scaffold.LevelSuccess:
			StepDone(w, m.Text)
		default:
			StepInfo(w, m.Text)
		}
	}

	if len(res.Created)+len(res.Modified)+len(res.Skipped) > 0 {
		fmt.Fprintln(w)
		Dim.Fprintln(w, "  Files:")
		for _, f := range res.Created {
			printFile(w, Green, "+", f, "")
		}
		for _, f := range res.Modified {
			printFile(w, Yellow, "~", f, "")
		}
		for _, f := range res.Skipped {
			printFile(w, Dim, "=", f, "exists, kept (use --force to overwrite)")
		}
	}

	for _, d := range res.Diffs {
		fmt.Fprintln(w)
		for _, line := range strings.Split(d.Diff, "\n") {
			switch {
			case len(line) > 0 && line[0] == '+':
				Green.Fprintln(w, "    "+line)
			case len(line) > 0 && line[0] == '-':
				Red.Fprintln(w, "    "+line)
			default:
				Dim.Fprintln(w, "    "+line)
			}
		}
	}

	if len(res.ManualInstall) > 0 {
		fmt.Fprintln(w)
		Dim.Fprintln(w, "  Install the dependencies with:")
		fmt.Fprintln(w)
		for _, c := range res.ManualInstall {
			Cyan.Fprintf(w, "    %s\n", c)
		}
	}

	if len(res.NextSteps) > 0 {
		fmt.Fprintln(w)
		Dim.Fprintln(w, "  Next steps:")
		fmt.Fprintln(w)
		for i, s := range res.NextSteps {
			Cyan.Fprintf(w, "    %d. %s\n", i+1, s)
		}
	}
	fmt.Fprintln(w)
}
