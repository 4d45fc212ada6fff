// Package boletin defines the domain model shared by the harvest (Bronze)
// and enrichment (Silver) phases: bulletins, norms, tenders, the company
// registry, and the derived per-company and per-agency aggregates.
package boletin

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the dd-mm-yyyy format the Boletín Oficial API expects.
const DateLayout = "02-01-2006"

// SubseccionLicitaciones marks the norm subsection holding tenders.
const SubseccionLicitaciones = "Licitaciones"

// Bulletin is one published bulletin (Bronze). Immutable once merged;
// superseded only by a row with a newer ExtractedAt for the same Numero.
type Bulletin struct {
	Numero           int64     `json:"numero"`
	FechaPublicacion time.Time `json:"fecha_publicacion"`
	Anio             int       `json:"anio"`
	Nombre           string    `json:"nombre"`
	URLBoletin       string    `json:"url_boletin"`
	Separata         string    `json:"separata"`
	ExtractedAt      time.Time `json:"extracted_at"`
}

// Norm is one norm inside a bulletin (Bronze). TipoNorma is the second
// partition key; Subseccion filters tenders.
type Norm struct {
	IDNorma          int64     `json:"id_norma"`
	NumeroBoletin    int64     `json:"numero_boletin"`
	FechaPublicacion time.Time `json:"fecha_publicacion"`
	Subseccion       string    `json:"subseccion"`
	TipoNorma        string    `json:"tipo_norma"`
	Organismo        string    `json:"organismo"`
	Nombre           string    `json:"nombre"`
	Sumario          string    `json:"sumario"`
	URLNorma         string    `json:"url_norma"`
	ExtractedAt      time.Time `json:"extracted_at"`
}

// IsTender reports whether the norm belongs to the tender subsection.
func (n Norm) IsTender() bool {
	return n.Subseccion == SubseccionLicitaciones
}

// Identifier is the norm's ledger identifier.
func (n Norm) Identifier() string {
	return strconv.FormatInt(n.IDNorma, 10)
}

// RawTender is the Bronze tender row: a tender norm plus the text extracted
// from its PDF.
type RawTender struct {
	Norm
	Texto string `json:"texto_licitaciones"`
}

// Stage is a normalized tender stage (etapa de licitación).
type Stage string

const (
	StageLlamado             Stage = "llamado"
	StagePreadjudicacion     Stage = "preadjudicacion"
	StageAdjudicacion        Stage = "adjudicacion"
	StageProrroga            Stage = "prorroga"
	StageApertura            Stage = "apertura"
	StageCircularConConsulta Stage = "circular_con_consulta"
	StageCircularSinConsulta Stage = "circular_sin_consulta"
	StageCorreccion          Stage = "correccion"
)

// Amount is a currency-tagged monetary value. Known is false when no
// parseable amount was found; that is a data-quality finding, not an error.
type Amount struct {
	Moneda string          `json:"moneda"`
	Valor  decimal.Decimal `json:"valor"`
	Known  bool            `json:"conocido"`
}

// CompanyMatch records one registry company matched in a tender's text,
// tagged with the stage the match occurred in.
type CompanyMatch struct {
	CUIT   string `json:"cuit"`
	Nombre string `json:"nombre"`
	Etapa  Stage  `json:"etapa"`
}

// Tender is the enriched (Silver) tender document derived from a RawTender.
type Tender struct {
	IDNorma          int64          `json:"id_norma"`
	FechaPublicacion time.Time      `json:"fecha_publicacion"`
	Organismo        string         `json:"organismo"`
	Nombre           string         `json:"nombre"`
	URLNorma         string         `json:"url_norma"`
	Tipo             string         `json:"tipo_licitacion"`
	Etapa            Stage          `json:"etapa_licitacion"`
	Codigo           string         `json:"codigo_licitacion"`
	Monto            Amount         `json:"monto"`
	Empresas         []CompanyMatch `json:"empresas"`
	ExtractedAt      time.Time      `json:"extracted_at"`
}

// Company is one registry entry from the annual procurement snapshot.
// The registry is the only source of truth for company identity.
type Company struct {
	CUIT              string `json:"cuit_empresa"`
	Nombre            string `json:"company_name"`
	NombreNormalizado string `json:"company_name_normalized"`
	Pais              string `json:"pais_empresa"`
}

// Agency is an issuing agency (organismo emisor) from the full-refresh
// reference source.
type Agency struct {
	ID     int64  `json:"id_organismo"`
	Nombre string `json:"nombre"`
}

// TerritorialUnit is a repartición from the full-refresh reference source.
type TerritorialUnit struct {
	ID     int64  `json:"id_reparticion"`
	Nombre string `json:"nombre"`
}

// CompanyProfile is the per-company derived aggregate. Recomputed wholesale
// each enrichment run.
type CompanyProfile struct {
	CUIT                       string `json:"cuit"`
	Nombre                     string `json:"nombre"`
	Presentaciones             int    `json:"presentaciones"`
	PresentacionesAdjudicacion int    `json:"presentaciones_adjudicacion"`
	TopOrganismoAdjudicaciones string `json:"top_organismo_adjudicaciones"`
	TopOrganismoPresentaciones string `json:"top_organismo_presentaciones"`
}

// AgencySummary is the per-agency derived aggregate. Recomputed wholesale
// each enrichment run.
type AgencySummary struct {
	Organismo              string          `json:"organismo"`
	MontoTotalAdjudicado   decimal.Decimal `json:"monto_total_adjudicado"`
	EmpresasAdjudicatarias int             `json:"empresas_adjudicatarias"`
}
