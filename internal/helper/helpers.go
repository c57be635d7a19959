package helper

import (
	"fmt"
	"net/http"
	"sync"
)

// ErrorReporter is satisfied by the errHandler package; declared here so the
// two packages don't import each other.
type ErrorReporter interface {
	ReportServerError(r *http.Request, err error)
}

type HelperRepository struct {
	baseUrl  *string
	WG       *sync.WaitGroup
	reporter ErrorReporter
}

func New(baseUrl *string, wg *sync.WaitGroup, reporter ErrorReporter) *HelperRepository {
	return &HelperRepository{
		baseUrl:  baseUrl,
		WG:       wg,
		reporter: reporter,
	}
}

// SetReporter wires the error reporter after construction; the error handler
// itself needs the helper for email data, so one of the two is attached late.
func (h *HelperRepository) SetReporter(reporter ErrorReporter) {
	h.reporter = reporter
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn on its own goroutine, recovering panics and routing
// errors through the reporter so callers can fire and forget.
func (h *HelperRepository) BackgroundTask(r *http.Request, fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil && h.reporter != nil {
				h.reporter.ReportServerError(r, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil && h.reporter != nil {
			h.reporter.ReportServerError(r, err)
		}
	}()
}
