package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/baires-data/boletin-pipeline/pkg/postgres"
)

// TenderRow is the Bronze tender row as read back for enrichment.
type TenderRow struct {
	IDNorma          int64
	FechaPublicacion time.Time
	Organismo        string
	Nombre           string
	URLNorma         string
	Sumario          string
	Texto            string
	ExtractedAt      time.Time
}

// CompanyRow is one registry entry as read back for enrichment.
type CompanyRow struct {
	CUIT              string
	Nombre            string
	NombreNormalizado string
	Pais              string
}

// Reader provides the read-only views the enrichment phase needs. It always
// reads the most recent merged snapshot; it has no ordering dependency on
// any in-flight harvest.
type Reader struct {
	db *postgres.Client
}

func NewReader(db *postgres.Client) *Reader {
	return &Reader{db: db}
}

func (r *Reader) Tenders(ctx context.Context) ([]TenderRow, error) {
	// The sumario lives on the norm; it backs the stage fallback when the
	// tender name alone does not reveal one.
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT l.id_norma, l.fecha_publicacion, l.organismo, l.nombre, l.url_norma,
		       COALESCE(n.sumario, ''), l.texto, l.extracted_at
		FROM licitaciones l
		LEFT JOIN normas n ON n.id_norma = l.id_norma
		ORDER BY l.id_norma`)
	if err != nil {
		return nil, fmt.Errorf("querying licitaciones: %w", err)
	}
	defer rows.Close()
	var out []TenderRow
	for rows.Next() {
		var t TenderRow
		if err := rows.Scan(&t.IDNorma, &t.FechaPublicacion, &t.Organismo, &t.Nombre, &t.URLNorma, &t.Sumario, &t.Texto, &t.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scanning licitacion: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NormRow is one merged norm as read back for a ledger retry.
type NormRow struct {
	IDNorma          int64
	NumeroBoletin    int64
	FechaPublicacion time.Time
	Subseccion       string
	TipoNorma        string
	Organismo        string
	Nombre           string
	Sumario          string
	URLNorma         string
	ExtractedAt      time.Time
}

// Norm returns one merged norm by id. The second return is false when the
// norm was never merged.
func (r *Reader) Norm(ctx context.Context, idNorma int64) (NormRow, bool, error) {
	row := r.db.DB.QueryRowContext(ctx, `
		SELECT id_norma, numero_boletin, fecha_publicacion, subseccion, tipo_norma,
		       organismo, nombre, sumario, url_norma, extracted_at
		FROM normas WHERE id_norma = $1`, idNorma)
	var n NormRow
	err := row.Scan(&n.IDNorma, &n.NumeroBoletin, &n.FechaPublicacion, &n.Subseccion,
		&n.TipoNorma, &n.Organismo, &n.Nombre, &n.Sumario, &n.URLNorma, &n.ExtractedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NormRow{}, false, nil
	}
	if err != nil {
		return NormRow{}, false, fmt.Errorf("querying norma %d: %w", idNorma, err)
	}
	return n, true, nil
}

func (r *Reader) Companies(ctx context.Context) ([]CompanyRow, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT cuit, nombre, nombre_normalizado, pais FROM empresas ORDER BY cuit`)
	if err != nil {
		return nil, fmt.Errorf("querying empresas: %w", err)
	}
	defer rows.Close()
	var out []CompanyRow
	for rows.Next() {
		var c CompanyRow
		if err := rows.Scan(&c.CUIT, &c.Nombre, &c.NombreNormalizado, &c.Pais); err != nil {
			return nil, fmt.Errorf("scanning empresa: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
