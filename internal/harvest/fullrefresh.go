package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
	"github.com/baires-data/boletin-pipeline/internal/resolve"
	"github.com/baires-data/boletin-pipeline/internal/storage"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
)

// FullRefresh replaces the three reference snapshots wholesale: issuing
// agencies, territorial units, and the company registry derived from the
// annual procurement releases. The sources are independent; one failing
// snapshot does not block the others, and the joined error reports all of
// them.
func (r *Runner) FullRefresh(ctx context.Context) error {
	log := logger.FromContext(ctx).With("component", "full-refresh")
	var errs []error

	if err := r.refreshAgencies(ctx); err != nil {
		errs = append(errs, fmt.Errorf("organismos: %w", err))
	} else {
		log.Info("organismos snapshot refreshed")
	}
	if err := r.refreshTerritorialUnits(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reparticiones: %w", err))
	} else {
		log.Info("reparticiones snapshot refreshed")
	}
	if err := r.refreshCompanies(ctx); err != nil {
		errs = append(errs, fmt.Errorf("empresas: %w", err))
	} else {
		log.Info("empresas snapshot refreshed")
	}
	return errors.Join(errs...)
}

func (r *Runner) refreshAgencies(ctx context.Context) error {
	agencies, err := r.api.Agencies(ctx)
	if err != nil {
		return err
	}
	rows := make([]storage.Row, 0, len(agencies))
	for _, a := range agencies {
		rows = append(rows, a.Row())
	}
	return r.overwrite(ctx, boletin.DatasetOrganismos, rows)
}

func (r *Runner) refreshTerritorialUnits(ctx context.Context) error {
	units, err := r.api.TerritorialUnits(ctx)
	if err != nil {
		return err
	}
	rows := make([]storage.Row, 0, len(units))
	for _, u := range units {
		rows = append(rows, u.Row())
	}
	return r.overwrite(ctx, boletin.DatasetReparticiones, rows)
}

// refreshCompanies rebuilds the company registry from the OCID supplier
// parties. Parties whose id does not carry a Buenos Aires CUIT are skipped;
// duplicate CUITs keep the first party seen.
func (r *Runner) refreshCompanies(ctx context.Context) error {
	parties, err := r.api.AnnualProcurement(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	var rows []storage.Row
	for _, p := range parties {
		pais, cuit, ok := resolve.ParseOCIDSupplier(p.ID)
		if !ok || seen[cuit] {
			continue
		}
		seen[cuit] = true
		company := boletin.Company{
			CUIT:              cuit,
			Nombre:            p.Name,
			NombreNormalizado: resolve.NormalizeCompanyName(p.Name),
			Pais:              pais,
		}
		rows = append(rows, company.Row())
	}
	return r.overwrite(ctx, boletin.DatasetEmpresas, rows)
}

func (r *Runner) overwrite(ctx context.Context, ds storage.Dataset, rows []storage.Row) error {
	n, err := r.store.Overwrite(ctx, ds, rows)
	if err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordsMergedTotal.WithLabelValues(ds.Table).Add(float64(n))
	}
	return nil
}
