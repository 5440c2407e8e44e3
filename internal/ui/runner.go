package ui

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/devark-dev/devark/internal/pkgmgr"
)

// SpinnerRunner runs package-manager commands behind a spinner and only shows
// their output when they fail.
type SpinnerRunner struct {
	Out    io.Writer
	ErrOut io.Writer
	Exec   pkgmgr.Runner
}

func (r SpinnerRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	var buf bytes.Buffer
	exec := r.runner(&buf)

	spin := NewSpinner(r.Out, "Running "+name+" "+strings.Join(args, " "))
	spin.Start()
	err := exec.Run(ctx, dir, name, args...)
	spin.Stop(err == nil)

	if err != nil && buf.Len() > 0 && r.ErrOut != nil {
		_, _ = r.ErrOut.Write(buf.Bytes())
	}
	return err
}

func (r SpinnerRunner) runner(buf *bytes.Buffer) pkgmgr.Runner {
	if r.Exec != nil {
		return r.Exec
	}
	return pkgmgr.ExecRunner{Stdout: buf, Stderr: buf, NoStdin: true}
}
