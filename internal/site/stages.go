package site

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/metrics"
)

// StageName identifies a build stage.
type StageName string

const (
	StageSetup        StageName = "setup"
	StageDiscover     StageName = "discover"
	StageRender       StageName = "render"
	StageLayout       StageName = "layout"
	StageIntegrations StageName = "integrations"
)

// StageErrorKind classifies a stage failure.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError records which stage failed and how.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type stage struct {
	name StageName
	fn   func(ctx context.Context, bs *buildState) error
}

// runStages executes stages in order, recording timings and stopping at the
// first error.
func (b *Builder) runStages(ctx context.Context, bs *buildState, stages []stage) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			b.recorder.IncStageResult(string(st.name), metrics.ResultCanceled)
			return &StageError{Kind: StageErrorCanceled, Stage: st.name, Err: err}
		}
		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		bs.report.StageDurations[st.name] = dur
		b.recorder.ObserveStageDuration(string(st.name), dur)

		if err != nil {
			kind := StageErrorFatal
			result := metrics.ResultFatal
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				kind = StageErrorCanceled
				result = metrics.ResultCanceled
			}
			b.recorder.IncStageResult(string(st.name), result)
			return &StageError{Kind: kind, Stage: st.name, Err: err}
		}
		b.recorder.IncStageResult(string(st.name), metrics.ResultSuccess)
		bs.logger.Debug("Stage complete", logfields.Stage(string(st.name)), logfields.DurationMS(float64(dur.Microseconds())/1000))
	}
	return nil
}
