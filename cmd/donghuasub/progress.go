package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

const (
	progressInterval = 250 * time.Millisecond
	progressBarWidth = 24
)

// waitForRun blocks until the session's active run ends, drawing progress on
// stderr. The first SIGINT or SIGTERM asks the run to stop after the request
// in flight and the caller still gets the final status so partial work can be
// saved. A second signal kills the process.
func waitForRun(cmd *cobra.Command, session *workbench.Session, label string) workbench.RunStatus {
	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	type result struct {
		status workbench.RunStatus
		err    error
	}
	done := make(chan result, 1)
	go func() {
		st, err := session.Wait(context.Background())
		done <- result{st, err}
	}()

	printer := newProgressPrinter(cmd.ErrOrStderr(), label)
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	interrupted := signalCtx.Done()
	for {
		select {
		case r := <-done:
			printer.finish(r.status)
			return r.status
		case <-interrupted:
			interrupted = nil
			handleInterrupt(session, printer, stop)
		case <-ticker.C:
			if st := session.Status(); st.Run != nil {
				printer.update(*st.Run)
			}
		}
	}
}

// handleInterrupt cancels the run once and restores default signal handling,
// so a second Ctrl+C terminates the process even while a request is retrying.
func handleInterrupt(run interface{ Cancel() bool }, printer *progressPrinter, release func()) {
	release()
	if run.Cancel() {
		printer.note("Interrupt received; stopping after the current request and keeping finished work (Ctrl+C again to quit)")
	}
}

type progressPrinter struct {
	out         io.Writer
	label       string
	interactive bool
	sampler     *logging.ProgressSampler
	lastLen     int
}

func newProgressPrinter(out io.Writer, label string) *progressPrinter {
	return &progressPrinter{
		out:         out,
		label:       label,
		interactive: isTerminal(out),
		sampler:     logging.NewProgressSampler(10),
	}
}

func (p *progressPrinter) update(st workbench.RunStatus) {
	line := progressLine(p.label, st)
	if p.interactive {
		pad := max(p.lastLen-len(line), 0)
		fmt.Fprintf(p.out, "\r%s%s", line, strings.Repeat(" ", pad))
		p.lastLen = len(line)
		return
	}
	if p.sampler.ShouldLog(st.Percent(), p.label) {
		fmt.Fprintln(p.out, line)
	}
}

func (p *progressPrinter) note(message string) {
	if p.interactive && p.lastLen > 0 {
		fmt.Fprintln(p.out)
		p.lastLen = 0
	}
	fmt.Fprintln(p.out, message)
}

func (p *progressPrinter) finish(st workbench.RunStatus) {
	if p.interactive {
		p.update(st)
		fmt.Fprintln(p.out)
		return
	}
	fmt.Fprintln(p.out, progressLine(p.label, st))
}

func progressLine(label string, st workbench.RunStatus) string {
	percent := st.Percent()
	filled := min(int(percent/100*progressBarWidth), progressBarWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	line := fmt.Sprintf("%s [%s] %3.0f%% %d/%d", label, bar, percent, st.Processed, st.Total)
	if st.Tokens > 0 {
		line += fmt.Sprintf(" tokens=%d", st.Tokens)
	}
	if st.Failed > 0 {
		line += fmt.Sprintf(" failed=%d", st.Failed)
	}
	if !st.Running() {
		line += " " + st.State
	}
	return line
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
