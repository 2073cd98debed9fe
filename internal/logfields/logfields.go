package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyPage        = "page"
	KeyRoute       = "route"
	KeyPlugin      = "plugin"
	KeyIntegration = "integration"
	KeyTransform   = "transform"
	KeyPath        = "path"
	KeyCount       = "count"
	KeyURL         = "url"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
// Since records the milliseconds elapsed since start.
func Since(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}
func Page(p string) slog.Attr            { return slog.String(KeyPage, p) }
func Route(r string) slog.Attr           { return slog.String(KeyRoute, r) }
func Plugin(name string) slog.Attr       { return slog.String(KeyPlugin, name) }
func Integration(name string) slog.Attr  { return slog.String(KeyIntegration, name) }
func Transform(name string) slog.Attr    { return slog.String(KeyTransform, name) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
