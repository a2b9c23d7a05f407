package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/vulntor/scribe/pkg/transcribe"
)

// progressPrinter renders controller transitions as one styled line each.
type progressPrinter struct {
	out      io.Writer
	interval time.Duration
	started  time.Time

	tagStyle     lipgloss.Style
	jobStyle     lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	mutedStyle   lipgloss.Style
}

func newProgressPrinter(out io.Writer, interval time.Duration, color bool) *progressPrinter {
	r := lipgloss.NewRenderer(out)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &progressPrinter{
		out:          out,
		interval:     interval,
		tagStyle:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Width(8),
		jobStyle:     r.NewStyle().Foreground(lipgloss.Color("14")),
		successStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		errorStyle:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		mutedStyle:   r.NewStyle().Faint(true),
	}
}

func (p *progressPrinter) Name() string { return "progress" }

func (p *progressPrinter) Handle(tr transcribe.Transition) {
	var line string
	switch tr.To.Phase {
	case transcribe.PhaseSubmitting:
		p.started = tr.At
		line = p.tagStyle.Render("UPLOAD") + "Uploading audio..."
	case transcribe.PhasePolling:
		if p.started.IsZero() {
			p.started = tr.At
		}
		line = fmt.Sprintf("%sJob %s accepted, checking every %s",
			p.tagStyle.Render("POLL"), p.jobStyle.Render(tr.To.JobID), p.interval)
	case transcribe.PhaseCompleted:
		line = p.successStyle.Render("✓ Transcription completed") + p.elapsed(tr.At)
	case transcribe.PhaseFailed:
		line = p.errorStyle.Render("✗ Transcription failed: "+tr.To.Reason) + p.elapsed(tr.At)
	case transcribe.PhaseIdle:
		if tr.From.IsTerminal() {
			return
		}
		line = p.mutedStyle.Render("Stopped before the job finished")
	default:
		return
	}
	_, _ = fmt.Fprintln(p.out, line)
}

func (p *progressPrinter) elapsed(at time.Time) string {
	if p.started.IsZero() {
		return ""
	}
	return p.mutedStyle.Render(fmt.Sprintf(" (%s)", at.Sub(p.started).Round(time.Second)))
}
