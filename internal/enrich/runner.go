// Package enrich recomputes the Silver layer from the Bronze tables: it
// parses every stored tender's name and text into structured fields,
// resolves company mentions against the registry, and rebuilds the derived
// per-company and per-agency aggregates. Each run is a pure recomputation
// over the full Bronze set; the outputs are overwritten wholesale, so a run
// is safe to repeat and never depends on its predecessor.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baires-data/boletin-pipeline/internal/aggregate"
	"github.com/baires-data/boletin-pipeline/internal/boletin"
	"github.com/baires-data/boletin-pipeline/internal/resolve"
	"github.com/baires-data/boletin-pipeline/internal/storage"
	"github.com/baires-data/boletin-pipeline/internal/tender"
	"github.com/baires-data/boletin-pipeline/pkg/config"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/metrics"
)

// Source is the Bronze read view the enricher consumes.
type Source interface {
	Tenders(ctx context.Context) ([]storage.TenderRow, error)
	Companies(ctx context.Context) ([]storage.CompanyRow, error)
}

// Report summarizes one enrichment run.
type Report struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Tenders        int       `json:"tenders"`
	Companies      int       `json:"registry_companies"`
	Matches        int       `json:"company_matches"`
	AmountsUnknown int       `json:"amounts_unknown"`
	Profiles       int       `json:"company_profiles"`
	Agencies       int       `json:"agency_summaries"`
}

// Params collects the enricher's collaborators. Metrics is optional.
type Params struct {
	Source  Source
	Store   storage.Store
	Config  config.ResolverConfig
	Metrics *metrics.Metrics
}

// Runner executes enrichment runs.
type Runner struct {
	source  Source
	store   storage.Store
	cfg     config.ResolverConfig
	metrics *metrics.Metrics
}

func New(p Params) *Runner {
	return &Runner{
		source:  p.Source,
		store:   p.Store,
		cfg:     p.Config,
		metrics: p.Metrics,
	}
}

// Run reads the Bronze tenders and registry, enriches every tender, and
// overwrites the four Silver outputs.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "enrich")

	report := &Report{RunID: runID, StartedAt: time.Now()}
	defer func() {
		report.FinishedAt = time.Now()
		if r.metrics != nil {
			r.metrics.EnrichDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		}
	}()

	companies, err := r.source.Companies(ctx)
	if err != nil {
		return report, err
	}
	registry := resolve.NewRegistry(toCompanies(companies))
	matcher := resolve.NewMatcher(registry, resolve.Config{
		Threshold:      r.cfg.MatchThreshold,
		MinWindowWords: r.cfg.MinWindowWords,
		MaxWindowWords: r.cfg.MaxWindowWords,
	})
	report.Companies = registry.Len()

	rows, err := r.source.Tenders(ctx)
	if err != nil {
		return report, err
	}
	report.Tenders = len(rows)
	log.Info("enrichment run starting", "tenders", len(rows), "registry_companies", registry.Len())

	floor := decimal.NewFromFloat(r.cfg.AmountFloor)
	tenders := make([]boletin.Tender, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		t := r.enrichOne(row, matcher, floor)
		report.Matches += len(t.Empresas)
		if !t.Monto.Known {
			report.AmountsUnknown++
		}
		tenders = append(tenders, t)
	}
	if r.metrics != nil {
		r.metrics.FuzzyMatchesTotal.Add(float64(report.Matches))
		r.metrics.AmountUnknownTotal.Add(float64(report.AmountsUnknown))
	}

	profiles := aggregate.CompanyProfiles(tenders)
	summaries := aggregate.AgencySummaries(tenders)
	report.Profiles = len(profiles)
	report.Agencies = len(summaries)

	if err := r.writeOutputs(ctx, tenders, profiles, summaries); err != nil {
		return report, err
	}
	report.FinishedAt = time.Now()
	logRun(log, report)
	return report, nil
}

// enrichOne derives the Silver tender from one Bronze row: structured name
// fields, normalized stage, extracted amount, and resolved company matches.
func (r *Runner) enrichOne(row storage.TenderRow, matcher *resolve.Matcher, floor decimal.Decimal) boletin.Tender {
	texto := tender.CleanText(row.Texto)
	fields := tender.ParseNameWithSumario(row.Nombre, row.Sumario)
	etapa := boletin.Stage(tender.NormalizeStage(fields.Etapa))
	return boletin.Tender{
		IDNorma:          row.IDNorma,
		FechaPublicacion: row.FechaPublicacion,
		Organismo:        row.Organismo,
		Nombre:           row.Nombre,
		URLNorma:         row.URLNorma,
		Tipo:             fields.Tipo,
		Etapa:            etapa,
		Codigo:           fields.Codigo,
		Monto:            tender.ExtractAmount(texto, floor),
		Empresas:         matcher.Match(texto, etapa),
		ExtractedAt:      row.ExtractedAt,
	}
}

func (r *Runner) writeOutputs(ctx context.Context, tenders []boletin.Tender, profiles []boletin.CompanyProfile, summaries []boletin.AgencySummary) error {
	enriched := make([]storage.Row, 0, len(tenders))
	var matches []storage.Row
	for _, t := range tenders {
		enriched = append(enriched, t.Row())
		matches = append(matches, t.MatchRows()...)
	}
	profileRows := make([]storage.Row, 0, len(profiles))
	for _, p := range profiles {
		profileRows = append(profileRows, p.Row())
	}
	summaryRows := make([]storage.Row, 0, len(summaries))
	for _, s := range summaries {
		summaryRows = append(summaryRows, s.Row())
	}

	outputs := []struct {
		ds   storage.Dataset
		rows []storage.Row
	}{
		{boletin.DatasetLicitacionesEnriquecidas, enriched},
		{boletin.DatasetLicitacionesEmpresas, matches},
		{boletin.DatasetPerfilEmpresas, profileRows},
		{boletin.DatasetResumenOrganismos, summaryRows},
	}
	for _, out := range outputs {
		n, err := r.store.Overwrite(ctx, out.ds, out.rows)
		if err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.RecordsMergedTotal.WithLabelValues(out.ds.Table).Add(float64(n))
		}
	}
	return nil
}

func toCompanies(rows []storage.CompanyRow) []boletin.Company {
	companies := make([]boletin.Company, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, boletin.Company{
			CUIT:              row.CUIT,
			Nombre:            row.Nombre,
			NombreNormalizado: row.NombreNormalizado,
			Pais:              row.Pais,
		})
	}
	return companies
}

func logRun(log *slog.Logger, r *Report) {
	log.Info("enrichment run complete",
		"run_id", r.RunID,
		"tenders", r.Tenders,
		"registry_companies", r.Companies,
		"company_matches", r.Matches,
		"amounts_unknown", r.AmountsUnknown,
		"perfil_empresas", r.Profiles,
		"resumen_organismos", r.Agencies,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	)
}
