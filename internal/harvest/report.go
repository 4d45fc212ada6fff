package harvest

import (
	"log/slog"
	"sync"
	"time"
)

// Report accumulates the user-visible counters for one harvest run:
// fetched, merged, ledgered, and reconciled records. Tender workers update
// it concurrently.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	mu           sync.Mutex
	Days         int   `json:"days"`
	DaysMerged   int   `json:"days_merged"`
	DaysLedgered int   `json:"days_ledgered"`
	Bulletins    int   `json:"bulletins_fetched"`
	Norms        int   `json:"norms_fetched"`
	Tenders      int   `json:"tenders_fetched"`
	RowsMerged   int64 `json:"rows_merged"`
	Ledgered     int   `json:"ledgered"`
	Retried      int   `json:"retried"`
	Reconciled   int   `json:"reconciled"`
}

func newReport(runID string) *Report {
	return &Report{RunID: runID, StartedAt: time.Now()}
}

func (r *Report) addLedgered(n int) {
	r.mu.Lock()
	r.Ledgered += n
	r.mu.Unlock()
}

func (r *Report) addReconciled(n int) {
	r.mu.Lock()
	r.Reconciled += n
	r.mu.Unlock()
}

func (r *Report) addTenders(n int) {
	r.mu.Lock()
	r.Tenders += n
	r.mu.Unlock()
}

// Log emits the run summary.
func (r *Report) Log(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logger.Info("harvest run complete",
		"run_id", r.RunID,
		"days", r.Days,
		"days_merged", r.DaysMerged,
		"days_ledgered", r.DaysLedgered,
		"bulletins", r.Bulletins,
		"normas", r.Norms,
		"licitaciones", r.Tenders,
		"rows_merged", r.RowsMerged,
		"ledgered", r.Ledgered,
		"retried", r.Retried,
		"reconciled", r.Reconciled,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	)
}
