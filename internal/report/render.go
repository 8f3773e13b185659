package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text or json)", s)
	}
}

// Write renders o to w.
func Write(w io.Writer, o *Overall, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, o)
	case FormatText, "":
		return WriteText(w, o)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteJSON renders o as indented JSON.
func WriteJSON(w io.Writer, o *Overall) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

type textStyles struct {
	title     lipgloss.Style
	heading   lipgloss.Style
	detail    lipgloss.Style
	command   lipgloss.Style
	body      lipgloss.Style
	errorText lipgloss.Style
	status    map[Status]lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer) textStyles {
	return textStyles{
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		heading:   r.NewStyle().Bold(true),
		detail:    r.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		command:   r.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		body:      r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1),
		errorText: r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		status: map[Status]lipgloss.Style{
			StatusSucceeded: r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
			StatusFailed:    r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
			StatusCancelled: r.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
			StatusSkipped:   r.NewStyle().Foreground(lipgloss.Color("#999999")),
			StatusPending:   r.NewStyle().Foreground(lipgloss.Color("#999999")),
		},
	}
}

func (s textStyles) label(st Status) string {
	return s.status[st].Render(string(st))
}

// WriteText renders o as styled text. Styling is dropped when w is not a
// terminal.
func WriteText(w io.Writer, o *Overall) error {
	st := newTextStyles(lipgloss.NewRenderer(w))

	title := "Release run " + o.RunID
	if o.DryRun {
		title += " (dry run)"
	}
	sections := []string{st.title.Render(title)}

	for _, p := range o.Packages {
		sections = append(sections, renderPackage(st, p))
	}

	counts := o.Counts()
	var summary []string
	for _, status := range []Status{StatusSucceeded, StatusFailed, StatusCancelled, StatusSkipped} {
		if n := counts[status]; n > 0 {
			summary = append(summary, fmt.Sprintf("%d %s", n, st.label(status)))
		}
	}
	if len(summary) == 0 {
		summary = append(summary, "no packages")
	}
	sections = append(sections, st.heading.Render("Summary: ")+strings.Join(summary, ", "))

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, sections...))
	return err
}

func renderPackage(st textStyles, p *PackageReport) string {
	header := st.heading.Render(p.Name)
	if p.Version != "" {
		header += " " + p.Version
	}
	header += st.detail.Render(" ["+p.Manager+"] ") + st.label(p.Status)
	lines := []string{"", header}

	if vc := p.VersionCheck; vc != nil {
		switch {
		case vc.Error != "":
			lines = append(lines, st.detail.Render("  version check failed: ")+st.errorText.Render(vc.Error))
		case vc.AlreadyPublished:
			lines = append(lines, st.detail.Render("  version "+vc.Published+" already published"))
		case vc.Published != "":
			lines = append(lines, st.detail.Render("  published version "+vc.Published))
		}
	}

	for _, stage := range p.Stages {
		line := fmt.Sprintf("  %-12s %s", stage.Stage, st.label(stage.Status))
		if stage.Reason != "" {
			line += st.detail.Render(" (" + stage.Reason + ")")
		}
		lines = append(lines, line)
		for _, step := range stage.Steps {
			lines = append(lines, renderStep(st, step))
		}
	}

	if p.Body != "" {
		lines = append(lines, st.body.Render(strings.TrimRight(p.Body, "\n")))
	}

	if len(p.Assets) > 0 {
		lines = append(lines, "  assets:")
		for _, a := range p.Assets {
			mark := ""
			if !a.Verified {
				mark = st.detail.Render(" (unverified)")
			}
			lines = append(lines, fmt.Sprintf("    %s  %s%s", a.Name, st.detail.Render(a.Path), mark))
		}
	}
	for _, e := range p.AssetErrors {
		lines = append(lines, st.errorText.Render("    asset: "+e))
	}

	if p.Error != "" {
		lines = append(lines, st.errorText.Render(fmt.Sprintf("  error (%s): %s", p.ErrorKind, p.Error)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderStep(st textStyles, step StepRecord) string {
	line := "    $ " + st.command.Render(step.Command)
	switch {
	case step.Skipped:
		line += st.detail.Render("  [dry run, not executed]")
	case step.Error != "":
		line += st.errorText.Render(fmt.Sprintf("  [exit %d]", step.ExitCode))
	case step.DryRun:
		line += st.detail.Render("  [dry run]")
	}
	if step.Error != "" && step.StderrTail != "" {
		for _, l := range strings.Split(strings.TrimRight(step.StderrTail, "\n"), "\n") {
			line += "\n      " + st.errorText.Render(l)
		}
	}
	return line
}
