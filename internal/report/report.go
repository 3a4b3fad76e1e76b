// Package report renders a site.RepositoryReport to its two supported
// output modes, json and text (spec.md §6's "Reports"). Human-facing
// scorecard formatting beyond the short summary below is explicitly
// out of scope per spec.md §1: the driver is the collaborator that turns
// this data into anything richer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/hako/durafmt"

	"github.com/pproenca/mutate4swift/internal/site"
)

var (
	fgRed     = color.New(color.FgRed).SprintFunc()
	fgGreen   = color.New(color.FgGreen).SprintFunc()
	fgHiGreen = color.New(color.FgHiGreen).SprintFunc()
	fgYellow  = color.New(color.FgYellow).SprintFunc()
)

// Mode selects between the two output encodings spec.md §6 names.
type Mode string

const (
	// Text renders the short colored summary.
	Text Mode = "text"
	// JSON renders the normative JSON encoding of the RepositoryReport.
	JSON Mode = "json"
)

// WriteJSON encodes r to w using the normative keys spec.md §6 lists:
// packagePath, fileReports[], filesAnalyzed, filesWithSurvivors, plus
// each fileReport's own normative keys.
func WriteJSON(w io.Writer, r site.RepositoryReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// Summary renders a four-line human-readable summary per spec.md §8's
// scenario expectations: the elapsed wall time formatted the way the
// teacher formats durations, the files analyzed and files with survivors,
// total mutations with the killed/survived/timedOut/buildError/skipped
// breakdown, and the aggregate kill percentage.
func Summary(r site.RepositoryReport, elapsed time.Duration) string {
	killed, survived, timedOut, buildErrs, skipped, total := aggregate(r)

	killPct := killPercentage(killed, timedOut, survived)

	d := durafmt.Parse(elapsed).LimitFirstN(2)

	return fmt.Sprintf(
		"Mutation testing completed in %s\nFiles analyzed: %d, with survivors: %d\nTotal: %d, Killed: %s, Survived: %s, Timed out: %s, Build errors: %d, Skipped: %d\nKill percentage: %.2f%%\n",
		d.String(),
		r.FilesAnalyzed(), r.FilesWithSurvivors(),
		total, fgHiGreen(killed), fgRed(survived), fgGreen(timedOut), buildErrs, skipped,
		killPct,
	)
}

// Site renders one MutationResult line, colored by outcome, in the
// teacher's "status padded, then description" layout.
func Site(sourceFile string, res site.MutationResult) string {
	status := res.Outcome.String()
	switch res.Outcome {
	case site.Killed, site.Timeout:
		status = fgHiGreen(status)
	case site.Survived:
		status = fgRed(status)
	case site.BuildError:
		status = fgYellow(status)
	}

	return fmt.Sprintf("%s%s %s at %s:%d:%d\n", padding(res.Outcome), status, res.Site.Operator, sourceFile, res.Site.Line, res.Site.Column)
}

func padding(o site.MutationOutcome) string {
	padLen := 12 - len(o.String())
	if padLen < 0 {
		padLen = 0
	}

	pad := make([]byte, padLen)
	for i := range pad {
		pad[i] = ' '
	}

	return string(pad)
}

func aggregate(r site.RepositoryReport) (killed, survived, timedOut, buildErrs, skipped, total int) {
	for _, fr := range r.FileReports {
		killed += fr.Killed()
		survived += fr.Survived()
		timedOut += fr.TimedOut()
		buildErrs += fr.BuildErrors()
		skipped += fr.SkippedCount()
		total += fr.TotalMutations()
	}

	return killed, survived, timedOut, buildErrs, skipped, total
}

// killPercentage mirrors site.MutationReport.KillPercentage, aggregated
// across an entire repository report.
func killPercentage(killed, timedOut, survived int) float64 {
	denom := killed + timedOut + survived
	if denom == 0 {
		return 100
	}

	return float64(killed+timedOut) / float64(denom) * 100
}
