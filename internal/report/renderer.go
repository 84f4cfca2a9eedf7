package report

import (
	"fmt"
	"io"

	"ChainHarvest/internal/engine/rank"
	"ChainHarvest/internal/stats"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// Report carries everything the renderer prints: the ranked entries in final
// order, the cutoff they were suppressed against, the sorted per-package
// counts, and the summary statistics (nil when no packages were observed).
type Report struct {
	Entries  []rank.Entry
	Cutoff   uint64
	Packages []rank.PackageCount
	Summary  *stats.Summary
}

// Renderer writes the textual report. Output is deterministic for a given
// Report; coloring only injects ANSI escapes around the same bytes.
type Renderer struct {
	Color bool
}

func (r *Renderer) blue(s string) string {
	if !r.Color {
		return s
	}
	return ansiBlue + s + ansiReset
}

func (r *Renderer) red(s string) string {
	if !r.Color {
		return s
	}
	return ansiRed + s + ansiReset
}

func (r *Renderer) green(s string) string {
	if !r.Color {
		return s
	}
	return ansiGreen + s + ansiReset
}

// Render writes the report: suppression notice, one line per surviving
// address with indented per-type lines, the per-package listing, and the
// summary line.
func (r *Renderer) Render(w io.Writer, rep *Report) error {
	if rep.Cutoff > 0 {
		if _, err := fmt.Fprintf(w, "Suppressing addresses with fewer than %d events\n", rep.Cutoff); err != nil {
			return err
		}
	}

	for _, entry := range rep.Entries {
		count := r.blue(fmt.Sprintf("%-5d", entry.Total))
		if _, err := fmt.Fprintf(w, "%s %s\n", count, r.red(entry.Address.String())); err != nil {
			return err
		}
		for _, tc := range entry.Types {
			count := r.blue(fmt.Sprintf("%5d", tc.Count))
			if _, err := fmt.Fprintf(w, "       %s : %s\n", count, r.green(tc.Tag.Short())); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "\nEvents by package:\n"); err != nil {
		return err
	}
	for _, pc := range rep.Packages {
		count := r.blue(fmt.Sprintf("%-5d", pc.Count))
		if _, err := fmt.Fprintf(w, "%s %s\n", count, pc.Package.String()); err != nil {
			return err
		}
	}

	if rep.Summary == nil {
		_, err := fmt.Fprintln(w, "Summary: no packages observed")
		return err
	}
	_, err := fmt.Fprintf(w, "Summary: %d packages, average %.2f +- %.2f events each\n",
		rep.Summary.Packages, rep.Summary.Mean, rep.Summary.StdDev)
	return err
}
