package preview

import (
	"sync"
	"time"

	"github.com/ahmadMuhammadGd/nanosite/internal/site"
)

// buildStatus tracks the most recent build for error display.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	lastReport   *site.Report
	hasGoodBuild bool
}

func (bs *buildStatus) setError(err error, report *site.Report) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
	bs.lastReport = report
}

func (bs *buildStatus) setSuccess(report *site.Report) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = nil
	bs.lastReport = report
	bs.hasGoodBuild = true
}

func (bs *buildStatus) getStatus() (hasGoodBuild bool, err error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.hasGoodBuild, bs.lastError
}

// Status is the JSON body of the status endpoint.
type Status struct {
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	BuildID    string    `json:"buildId,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Pages      int       `json:"pages"`
	Files      int       `json:"files"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	DurationMS int64     `json:"durationMs"`
}

func (bs *buildStatus) snapshot() Status {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	s := Status{OK: bs.lastError == nil}
	if bs.lastError != nil {
		s.Error = bs.lastError.Error()
	}
	if r := bs.lastReport; r != nil {
		s.BuildID = r.BuildID
		s.Outcome = string(r.Outcome)
		s.Pages = r.Pages
		s.Files = len(r.Files)
		s.FinishedAt = r.End
		s.DurationMS = r.Duration().Milliseconds()
	}
	return s
}
