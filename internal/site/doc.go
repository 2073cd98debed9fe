// Package site orchestrates a full build: integration setup, content
// discovery, parallel page rendering, layout and the build-done hooks.
//
// Each stage is timed and reported through a metrics.Recorder. A failing
// stage aborts the build with a *StageError wrapping a classified error.
package site
