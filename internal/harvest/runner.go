// Package harvest orchestrates the incremental Bronze extraction: one pass
// over every unprocessed day from the watermark to today, fetching the
// bulletin and its norms, downloading tender PDFs through a bounded worker
// pool, merging everything into storage, and only then advancing the
// watermark. Fetch failures are ledgered and the run keeps going; storage
// failures abort the run so the watermark never claims an unmerged day.
// Every run opens by re-attempting whatever the ledger still holds, so a
// day or norm that failed behind the watermark is not lost.
package harvest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/baires-data/boletin-pipeline/internal/api"
	"github.com/baires-data/boletin-pipeline/internal/boletin"
	"github.com/baires-data/boletin-pipeline/internal/ledger"
	"github.com/baires-data/boletin-pipeline/internal/pdftext"
	"github.com/baires-data/boletin-pipeline/internal/scheduler"
	"github.com/baires-data/boletin-pipeline/internal/storage"
	errorsx "github.com/baires-data/boletin-pipeline/pkg/errors"
	"github.com/baires-data/boletin-pipeline/pkg/kafka"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/metrics"
)

// APIClient is the slice of the bulletin API the runner depends on.
type APIClient interface {
	Day(ctx context.Context, date time.Time) (*api.Day, error)
	TenderPDF(ctx context.Context, idNorma int64, url string) ([]byte, error)
	Agencies(ctx context.Context) ([]boletin.Agency, error)
	TerritorialUnits(ctx context.Context) ([]boletin.TerritorialUnit, error)
	AnnualProcurement(ctx context.Context) ([]api.Party, error)
}

// NormSource looks a merged norm back up by id. The retry pass needs it to
// re-fetch a ledgered tender PDF whose day has long since merged.
type NormSource interface {
	Norm(ctx context.Context, idNorma int64) (storage.NormRow, bool, error)
}

// Params collects the runner's collaborators. Cache, Events and Metrics are
// optional; the runner degrades to uncached, unpublished, unmeasured runs
// without them.
type Params struct {
	API       APIClient
	Store     storage.Store
	Ledger    ledger.Ledger
	Scheduler *scheduler.Scheduler
	Extractor pdftext.Extractor
	Norms     NormSource
	Cache     *pdftext.TextCache
	Events    EventPublisher
	Metrics   *metrics.Metrics
	Workers   int
}

// Runner executes harvest runs.
type Runner struct {
	api       APIClient
	store     storage.Store
	ledger    ledger.Ledger
	sched     *scheduler.Scheduler
	extractor pdftext.Extractor
	norms     NormSource
	cache     *pdftext.TextCache
	events    EventPublisher
	metrics   *metrics.Metrics
	workers   int
}

func New(p Params) *Runner {
	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		api:       p.API,
		store:     p.Store,
		ledger:    p.Ledger,
		sched:     p.Scheduler,
		extractor: p.Extractor,
		norms:     p.Norms,
		cache:     p.Cache,
		events:    p.Events,
		metrics:   p.Metrics,
		workers:   workers,
	}
}

// Run processes every day from the resolved start date through today. The
// returned report is valid even when the run aborts partway.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "harvest")

	report := newReport(runID)
	defer func() {
		report.FinishedAt = time.Now()
		if r.metrics != nil {
			r.metrics.HarvestDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		}
	}()

	start, err := r.sched.StartDate(ctx)
	if err != nil {
		return report, err
	}
	days := r.sched.Days(start)
	report.Days = len(days)

	// Open ledger entries are re-attempted before the new days, so a day
	// the watermark already passed gets its second chance on every run.
	if err := r.retryOpenEntries(ctx, start, report); err != nil {
		return report, err
	}

	if len(days) == 0 {
		log.Info("harvest already caught up", "start", start.Format(boletin.DateLayout))
	} else {
		log.Info("harvest run starting",
			"start", days[0].Format(boletin.DateLayout),
			"end", days[len(days)-1].Format(boletin.DateLayout),
			"days", len(days))
		for _, day := range days {
			if err := ctx.Err(); err != nil {
				// Interrupted before the day merged: the watermark still
				// points at the previous day and the next run resumes here.
				return report, err
			}
			if err := r.processDay(ctx, day, report); err != nil {
				return report, err
			}
			if err := r.sched.Confirm(ctx, day); err != nil {
				return report, err
			}
		}
	}

	if open, err := r.ledger.Open(ctx); err == nil && r.metrics != nil {
		r.metrics.LedgerOpenEntries.Set(float64(len(open)))
	}
	report.FinishedAt = time.Now()
	report.Log(log)
	return report, nil
}

// retryOpenEntries re-attempts every identifier the ledger still holds
// open. Date identifiers behind the start of the regular range go back
// through the day path; norm identifiers re-fetch the stored tender PDF.
// An entry that fails again is simply re-ledgered and stays open.
func (r *Runner) retryOpenEntries(ctx context.Context, start time.Time, report *Report) error {
	open, err := r.ledger.Open(ctx)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}
	log := logger.FromContext(ctx).With("component", "harvest")
	seen := make(map[string]bool, len(open))
	for _, entry := range open {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[entry.Identifier] {
			continue
		}
		seen[entry.Identifier] = true
		if day, err := time.Parse(boletin.DateLayout, entry.Identifier); err == nil {
			if !day.Before(start) {
				// The regular day loop will fetch it anyway.
				continue
			}
			report.Retried++
			log.Info("retrying ledgered day", "fecha", entry.Identifier, "kind", entry.Kind)
			if err := r.processDay(ctx, day, report); err != nil {
				return err
			}
			continue
		}
		report.Retried++
		if err := r.retryTender(ctx, entry, report); err != nil {
			return err
		}
	}
	return nil
}

// retryTender re-fetches one ledgered tender PDF using the norm row its
// day already merged into Bronze.
func (r *Runner) retryTender(ctx context.Context, entry ledger.Entry, report *Report) error {
	log := logger.FromContext(ctx).With("component", "harvest", "identifier", entry.Identifier)
	idNorma, err := strconv.ParseInt(entry.Identifier, 10, 64)
	if err != nil {
		log.Warn("ledger identifier is neither a date nor a norm id", "kind", entry.Kind)
		return nil
	}
	if r.norms == nil {
		log.Warn("no norm source configured, ledgered tender left open")
		return nil
	}
	stored, ok, err := r.norms.Norm(ctx, idNorma)
	if err != nil {
		return err
	}
	if !ok {
		log.Warn("ledgered norm missing from storage", "kind", entry.Kind)
		return nil
	}
	norm := boletin.Norm{
		IDNorma:          stored.IDNorma,
		NumeroBoletin:    stored.NumeroBoletin,
		FechaPublicacion: stored.FechaPublicacion,
		Subseccion:       stored.Subseccion,
		TipoNorma:        stored.TipoNorma,
		Organismo:        stored.Organismo,
		Nombre:           stored.Nombre,
		Sumario:          stored.Sumario,
		URLNorma:         stored.URLNorma,
		ExtractedAt:      stored.ExtractedAt,
	}
	log.Info("retrying ledgered tender pdf", "kind", entry.Kind)
	rows, err := r.fetchTenderTexts(ctx, []boletin.Norm{norm}, report)
	if err != nil {
		return err
	}
	merged, err := r.merge(ctx, boletin.DatasetLicitaciones, rows)
	if err != nil {
		return err
	}
	report.RowsMerged += merged
	return nil
}

// processDay fetches and merges one day. Fetch failures are ledgered under
// the day's dd-mm-yyyy identifier and the day still counts as processed;
// only storage and cancellation errors propagate.
func (r *Runner) processDay(ctx context.Context, day time.Time, report *Report) error {
	fecha := day.Format(boletin.DateLayout)
	log := logger.FromContext(ctx).With("component", "harvest", "fecha", fecha)

	dayData, err := r.api.Day(ctx, day)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		kind := errorsx.Kind(err)
		if err := r.ledger.RecordFailure(ctx, fecha, kind, err.Error()); err != nil {
			return err
		}
		report.DaysLedgered++
		report.addLedgered(1)
		r.countFailure(kind)
		r.countDay("ledgered")
		log.Warn("day fetch failed, ledgered", "kind", kind, "error", err)
		return nil
	}

	// The date fetched cleanly; any earlier failures for it are resolved.
	resolved, err := r.ledger.Reconcile(ctx, fecha)
	if err != nil {
		return err
	}
	if n := len(resolved); n > 0 {
		report.addReconciled(n)
		r.countReconciled(n)
	}

	report.Bulletins++
	report.Norms += len(dayData.Norms)

	var tenders []boletin.Norm
	for _, n := range dayData.Norms {
		if n.IsTender() {
			tenders = append(tenders, n)
		}
	}
	tenderRows, err := r.fetchTenderTexts(ctx, tenders, report)
	if err != nil {
		return err
	}

	normRows := make([]storage.Row, 0, len(dayData.Norms))
	for _, n := range dayData.Norms {
		normRows = append(normRows, n.Row())
	}

	merged, err := r.merge(ctx, boletin.DatasetBoletines, []storage.Row{dayData.Bulletin.Row()})
	if err != nil {
		return err
	}
	normsMerged, err := r.merge(ctx, boletin.DatasetNormas, normRows)
	if err != nil {
		return err
	}
	tendersMerged, err := r.merge(ctx, boletin.DatasetLicitaciones, tenderRows)
	if err != nil {
		return err
	}
	report.RowsMerged += merged + normsMerged + tendersMerged
	report.DaysMerged++
	r.countDay("merged")

	r.publishDayMerged(ctx, report.RunID, dayData, fecha, len(tenderRows))
	log.Info("day merged",
		"numero", dayData.Bulletin.Numero,
		"normas", len(dayData.Norms),
		"licitaciones", len(tenderRows))
	return nil
}

// fetchTenderTexts downloads and extracts the tender PDFs for one day
// through a bounded worker pool. A norm whose PDF fails is ledgered under
// its id and skipped; the rest of the day is unaffected.
func (r *Runner) fetchTenderTexts(ctx context.Context, tenders []boletin.Norm, report *Report) ([]storage.Row, error) {
	if len(tenders) == 0 {
		return nil, nil
	}
	var (
		mu   sync.Mutex
		rows []storage.Row
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, norm := range tenders {
		g.Go(func() error {
			text, err := r.tenderText(gctx, norm)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				kind := errorsx.Kind(err)
				if err := r.ledger.RecordFailure(gctx, norm.Identifier(), kind, err.Error()); err != nil {
					return err
				}
				report.addLedgered(1)
				r.countFailure(kind)
				return nil
			}
			resolved, err := r.ledger.Reconcile(gctx, norm.Identifier())
			if err != nil {
				return err
			}
			if n := len(resolved); n > 0 {
				report.addReconciled(n)
				r.countReconciled(n)
			}
			row := boletin.RawTender{Norm: norm, Texto: text}.Row()
			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.addTenders(len(rows))
	return rows, nil
}

// tenderText returns the tender's extracted text, consulting the cache
// before fetching and decoding the PDF.
func (r *Runner) tenderText(ctx context.Context, norm boletin.Norm) (string, error) {
	if text, ok := r.cache.Get(ctx, norm.IDNorma); ok {
		if r.metrics != nil {
			r.metrics.PDFCacheHitsTotal.Inc()
		}
		return text, nil
	}
	if r.metrics != nil {
		r.metrics.PDFCacheMissesTotal.Inc()
	}
	data, err := r.api.TenderPDF(ctx, norm.IDNorma, norm.URLNorma)
	if err != nil {
		return "", err
	}
	text, err := r.extractor.Text(ctx, norm.IDNorma, data)
	if err != nil {
		return "", err
	}
	r.cache.Put(ctx, norm.IDNorma, text)
	return text, nil
}

func (r *Runner) merge(ctx context.Context, ds storage.Dataset, rows []storage.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.store.Merge(ctx, ds, rows)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.RecordsMergedTotal.WithLabelValues(ds.Table).Add(float64(n))
	}
	return n, nil
}

// publishDayMerged emits the downstream trigger. Losing the event only
// delays enrichment until its next scheduled pass, so publish failures are
// logged, not fatal.
func (r *Runner) publishDayMerged(ctx context.Context, runID string, day *api.Day, fecha string, tenders int) {
	if r.events == nil {
		return
	}
	event := DayMerged{
		RunID:         runID,
		Fecha:         fecha,
		NumeroBoletin: day.Bulletin.Numero,
		Normas:        len(day.Norms),
		Licitaciones:  tenders,
		MergedAt:      time.Now(),
	}
	if err := r.events.Publish(ctx, kafka.Event{Key: fecha, Value: event}); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.FromContext(ctx).Warn("day-merged event not published", "fecha", fecha, "error", err)
	}
}

func (r *Runner) countDay(outcome string) {
	if r.metrics != nil {
		r.metrics.DaysProcessedTotal.WithLabelValues(outcome).Inc()
	}
}

func (r *Runner) countFailure(kind string) {
	if r.metrics != nil {
		r.metrics.FetchFailuresTotal.WithLabelValues(kind).Inc()
	}
}

func (r *Runner) countReconciled(n int) {
	if r.metrics != nil {
		r.metrics.ReconciledTotal.Add(float64(n))
	}
}
