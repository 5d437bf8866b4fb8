package domain

import "time"

// Backfill failure stages. The stage tells the operator which half of
// the pipeline to look at before rerunning a month.
const (
	StageDiscovery = "discovery"
	StageFetch     = "fetch"
	StageExtract   = "extract"
)

// PeriodFailure records one month the backfill could not complete.
type PeriodFailure struct {
	Period Period `json:"period"`
	Stage  string `json:"stage" validate:"required,oneof=discovery fetch extract"`
	Reason string `json:"reason" validate:"required"`
}

// BackfillReport aggregates one backfill run: every month that produced
// a canonical payload and every month that failed, independently. A
// single bad month never poisons its siblings.
type BackfillReport struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Documents  []RatesPayload  `json:"documents"`
	Failures   []PeriodFailure `json:"failures"`
}

// Requested reports how many months the run covered.
func (r *BackfillReport) Requested() int {
	return len(r.Documents) + len(r.Failures)
}

// Partial reports whether the run had failures alongside successes.
func (r *BackfillReport) Partial() bool {
	return len(r.Failures) > 0 && len(r.Documents) > 0
}

// AllFailed reports whether no month produced a payload.
func (r *BackfillReport) AllFailed() bool {
	return len(r.Documents) == 0 && len(r.Failures) > 0
}
