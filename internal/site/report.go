package site

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report summarizes a build run.
type Report struct {
	BuildID string
	Start   time.Time
	End     time.Time
	Outcome Outcome

	// OutDir is the output directory the files were written to.
	OutDir string
	// Pages is the number of pages rendered.
	Pages int
	// Files lists every written file, slash separated and relative to OutDir,
	// in write order.
	Files []string

	Integrations []string
	Transforms   []string

	StageDurations map[StageName]time.Duration
}

func newReport(id string) *Report {
	return &Report{
		BuildID:        id,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
	}
}

// Duration returns the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Summary renders a one-line human readable summary.
func (r *Report) Summary() string {
	var stages []string
	for _, name := range []StageName{StageSetup, StageDiscover, StageRender, StageLayout, StageIntegrations} {
		if d, ok := r.StageDurations[name]; ok {
			stages = append(stages, fmt.Sprintf("%s=%s", name, d.Round(time.Millisecond)))
		}
	}
	return fmt.Sprintf("%s: %d pages, %d files in %s (%s)",
		r.Outcome, r.Pages, len(r.Files), r.Duration().Round(time.Millisecond), strings.Join(stages, " "))
}
