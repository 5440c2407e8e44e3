package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	Bold    = color.New(color.Bold)
	Green   = color.New(color.FgGreen, color.Bold)
	Cyan    = color.New(color.FgCyan)
	Yellow  = color.New(color.FgYellow)
	Red     = color.New(color.FgRed, color.Bold)
	Dim     = color.New(color.Faint)
	White   = color.New(color.FgWhite, color.Bold)
	Magenta = color.New(color.FgMagenta, color.Bold)
)

const banner = `
      _                      _
   __| | _____   ____ _ _ __| | __
  / _` + "`" + ` |/ _ \ \ / / _` + "`" + ` | '__| |/ /
 | (_| |  __/\ V / (_| | |  |   <
  \__,_|\___| \_/ \__,_|_|  |_|\_\
`

func PrintBanner(w io.Writer) {
	Cyan.Fprint(w, banner)
	Dim.Fprintln(w, "  Express.js backend modules, one command away")
	fmt.Fprintln(w)
}

func PrintAddHeader(w io.Writer, module, dir string) {
	Magenta.Fprintln(w, "  Adding", Bold.Sprint(module), "to", Bold.Sprint(dir))
	fmt.Fprintln(w)
}

// Spinner provides a CRA-style animated spinner.
type Spinner struct {
	w       io.Writer
	message string
	done    chan bool
	mu      sync.Mutex
	stopped bool
}

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		done:    make(chan bool),
	}
}

func (s *Spinner) Start() {
	go func() {
		i := 0
		for {
			select {
			case <-s.done:
				return
			default:
				frame := frames[i%len(frames)]
				Cyan.Fprintf(s.w, "\r  %s %s", frame, s.message)
				time.Sleep(80 * time.Millisecond)
				i++
			}
		}
	}()
}

func (s *Spinner) Stop(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.done <- true

	// Clear the line.
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+10))

	if success {
		Green.Fprintf(s.w, "  ✓ %s\n", s.message)
	} else {
		Red.Fprintf(s.w, "  ✗ %s\n", s.message)
	}
}

func StepDone(w io.Writer, msg string) {
	Green.Fprintf(w, "  ✓ %s\n", msg)
}

func StepInfo(w io.Writer, msg string) {
	Cyan.Fprintf(w, "  ℹ %s\n", msg)
}

func StepWarn(w io.Writer, msg string) {
	Yellow.Fprintf(w, "  ⚠ %s\n", msg)
}

func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w)
	Red.Fprintf(w, "  ✗ %s\n", err)
}

func printFile(w io.Writer, mark *color.Color, sign, path, desc string) {
	if desc == "" {
		fmt.Fprintf(w, "    %s %s\n", mark.Sprint(sign), Cyan.Sprint(path))
		return
	}
	fmt.Fprintf(w, "    %s %s  %s\n", mark.Sprint(sign), Cyan.Sprint(path), Dim.Sprint(desc))
}

type ModuleDisplay struct {
	Name        string
	Description string
	Aliases     []string
	Starter     bool
	Installed   bool
	Deps        string
}

func PrintModules(w io.Writer, modules []ModuleDisplay) {
	sections := []struct {
		title   string
		starter bool
	}{
		{"Feature Modules", false},
		{"Starter Projects", true},
	}
	for _, sec := range sections {
		fmt.Fprintln(w)
		Bold.Fprintf(w, "  %s\n", sec.title)
		fmt.Fprintln(w)

		for _, m := range modules {
			if m.Starter != sec.starter {
				continue
			}
			status := Dim.Sprint("○")
			if m.Installed {
				status = Green.Sprint("●")
			}

			aliases := ""
			if len(m.Aliases) > 0 {
				aliases = Dim.Sprintf(" (alias: %s)", strings.Join(m.Aliases, ", "))
			}

			fmt.Fprintf(w, "    %s  %-14s %s%s\n",
				status,
				Bold.Sprint(m.Name),
				m.Description,
				aliases,
			)
			if m.Deps != "" {
				Dim.Fprintf(w, "                      → %s\n", m.Deps)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "    %s installed   %s available\n", Green.Sprint("●"), Dim.Sprint("○"))
	fmt.Fprintln(w)
}
