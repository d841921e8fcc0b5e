// Package present renders job status for the terminal.
package present

import (
	"clubctl/internal/app"
	"clubctl/internal/model"
	"fmt"
	"io"
	"strings"
)

const barWidth = 30

type Renderer struct {
	out   io.Writer
	color bool
}

func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{out: out, color: color}
}

func ansi(c model.Color) string {
	switch c {
	case model.ColorGray:
		return "\033[90m"
	case model.ColorYellow:
		return "\033[33m"
	case model.ColorBlue:
		return "\033[34m"
	case model.ColorGreen:
		return "\033[32m"
	case model.ColorRed:
		return "\033[31m"
	}

	return ""
}

func (r *Renderer) paint(c model.Color, s string) string {
	if !r.color {
		return s
	}

	return ansi(c) + s + "\033[0m"
}

func (r *Renderer) StatusBadge(s model.JobStatus) string {
	return r.paint(s.Color(), fmt.Sprintf("%-10s", s.Label()))
}

func ProgressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100

	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]" + fmt.Sprintf(" %3d%%", percent)
}

// Job prints one line of progress followed by any per-file errors.
func (r *Renderer) Job(v model.JobView) {
	if v.Job == nil {
		_, _ = fmt.Fprintln(r.out, "no job status observed yet")
		return
	}

	j := v.Job
	_, _ = fmt.Fprintf(r.out, "%s %s %s %d/%d files, %d failed\n",
		j.JobID, r.StatusBadge(j.Status), ProgressBar(v.ProgressPercent, barWidth),
		j.Processed, j.TotalFiles, j.Failed)

	if v.IsCompleted || v.IsFailed {
		for _, e := range v.Errors() {
			_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.paint(model.ColorRed, "✗"), e)
		}
	}
}

func (r *Renderer) Recent(jobs []model.RecentJob) {
	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(r.out, "no recent bulk uploads")
		return
	}

	_, _ = fmt.Fprintf(r.out, "%-36s %-10s %-12s %s\n", "JOB", "STATUS", "PROGRESS", "CREATED")
	for _, j := range jobs {
		progress := fmt.Sprintf("%d/%d (%d%%)", j.Processed, j.TotalFiles, model.ProgressPercent(j.Processed, j.TotalFiles))
		_, _ = fmt.Fprintf(r.out, "%-36s %s %-12s %s\n",
			j.JobID, r.StatusBadge(j.Status), progress, j.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	if model.AnyActive(jobs) {
		_, _ = fmt.Fprintln(r.out, "a bulk upload is in progress; new uploads are held until it finishes")
	}
}

func (r *Renderer) Activity(entries []app.Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintf(r.out, "[%s] %-7s %s\n", e.Time.Format("15:04:05"), e.Level, e.Message)
	}
}
