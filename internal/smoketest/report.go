package smoketest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name    string
	Command string
	Passed  bool
	// Detail explains a failure, or notes side effects of a passing check.
	Detail string
}

// CheckError is a failed check.
type CheckError struct {
	Name   string
	Detail string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s check failed: %s", e.Name, e.Detail)
}

// Report collects the checks of one run in execution order.
type Report struct {
	Binary string
	Checks []CheckResult
}

func (r *Report) add(ctx context.Context, c CheckResult) {
	if c.Passed {
		logger.DebugKV(ctx, "check passed", "check", c.Name)
	} else {
		logger.WarnKV(ctx, "check failed", "check", c.Name, "detail", c.Detail)
	}
	r.Checks = append(r.Checks, c)
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return true
		}
	}
	return false
}

// Err joins a *CheckError for every failed check, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Checks {
		if !c.Passed {
			errs = append(errs, &CheckError{Name: c.Name, Detail: c.Detail})
		}
	}
	return errors.Join(errs...)
}

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Width(8)
	detailStyle = lipgloss.NewStyle().Faint(true)
)

// Render writes one line per check and a summary line.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder

	passed := 0
	for _, c := range r.Checks {
		mark := failStyle.Render("✗")
		if c.Passed {
			mark = passStyle.Render("✓")
			passed++
		}
		b.WriteString(mark + " " + nameStyle.Render(c.Name))
		if c.Detail != "" {
			b.WriteString(" " + detailStyle.Render(c.Detail))
		}
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("%d/%d checks passed", passed, len(r.Checks))
	if r.Failed() {
		b.WriteString(failStyle.Render(summary))
	} else {
		b.WriteString(passStyle.Render(summary))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
