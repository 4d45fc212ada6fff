package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
)

func amount(v int64) boletin.Amount {
	return boletin.Amount{Moneda: "$", Valor: decimal.NewFromInt(v), Known: true}
}

func testTenders() []boletin.Tender {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return []boletin.Tender{
		{
			IDNorma:          1,
			FechaPublicacion: day,
			Organismo:        "Ministerio de Salud",
			Etapa:            boletin.StageAdjudicacion,
			Monto:            amount(100),
			Empresas: []boletin.CompanyMatch{
				{CUIT: "30-11111111-1", Nombre: "Acme S.A.", Etapa: boletin.StageAdjudicacion},
			},
		},
		{
			IDNorma:          2,
			FechaPublicacion: day,
			Organismo:        "Ministerio de Salud",
			Etapa:            boletin.StageAdjudicacion,
			Monto:            amount(200),
			Empresas: []boletin.CompanyMatch{
				{CUIT: "30-11111111-1", Nombre: "Acme S.A.", Etapa: boletin.StageAdjudicacion},
				{CUIT: "30-22222222-2", Nombre: "Beta S.R.L.", Etapa: boletin.StageAdjudicacion},
			},
		},
		{
			IDNorma:          3,
			FechaPublicacion: day,
			Organismo:        "Ministerio de Educación",
			Etapa:            boletin.StageLlamado,
			Empresas: []boletin.CompanyMatch{
				{CUIT: "30-11111111-1", Nombre: "Acme S.A.", Etapa: boletin.StageLlamado},
			},
		},
		{
			// Adjudication with no matched companies contributes to no summary.
			IDNorma:   4,
			Organismo: "Ministerio de Salud",
			Etapa:     boletin.StageAdjudicacion,
			Monto:     amount(999),
		},
		{
			// Unknown amount still counts the winner, not the total.
			IDNorma:   5,
			Organismo: "Ministerio de Educación",
			Etapa:     boletin.StageAdjudicacion,
			Empresas: []boletin.CompanyMatch{
				{CUIT: "30-22222222-2", Nombre: "Beta S.R.L.", Etapa: boletin.StageAdjudicacion},
			},
		},
	}
}

func TestCompanyProfiles(t *testing.T) {
	profiles := CompanyProfiles(testTenders())
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2: %+v", len(profiles), profiles)
	}

	acme := profiles[0]
	if acme.CUIT != "30-11111111-1" {
		t.Fatalf("profiles not sorted by CUIT: %+v", profiles)
	}
	if acme.Presentaciones != 3 {
		t.Errorf("acme presentaciones = %d, want 3", acme.Presentaciones)
	}
	if acme.PresentacionesAdjudicacion != 2 {
		t.Errorf("acme wins = %d, want 2", acme.PresentacionesAdjudicacion)
	}
	if acme.TopOrganismoAdjudicaciones != "Ministerio de Salud" {
		t.Errorf("acme top adjudicaciones = %q", acme.TopOrganismoAdjudicaciones)
	}
	if acme.TopOrganismoPresentaciones != "Ministerio de Salud" {
		t.Errorf("acme top presentaciones = %q", acme.TopOrganismoPresentaciones)
	}

	beta := profiles[1]
	if beta.Presentaciones != 2 || beta.PresentacionesAdjudicacion != 2 {
		t.Errorf("beta counts = (%d, %d), want (2, 2)", beta.Presentaciones, beta.PresentacionesAdjudicacion)
	}
	// One win per agency: the tie breaks on the lower agency name.
	if beta.TopOrganismoAdjudicaciones != "Ministerio de Educación" {
		t.Errorf("beta top adjudicaciones = %q, want tie broken to lowest", beta.TopOrganismoAdjudicaciones)
	}
}

func TestAgencySummaries(t *testing.T) {
	summaries := AgencySummaries(testTenders())
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2: %+v", len(summaries), summaries)
	}

	educacion := summaries[0]
	if educacion.Organismo != "Ministerio de Educación" {
		t.Fatalf("summaries not sorted by agency: %+v", summaries)
	}
	if !educacion.MontoTotalAdjudicado.Equal(decimal.Zero) {
		t.Errorf("educacion total = %s, want 0 (amount unknown)", educacion.MontoTotalAdjudicado)
	}
	if educacion.EmpresasAdjudicatarias != 1 {
		t.Errorf("educacion winners = %d, want 1", educacion.EmpresasAdjudicatarias)
	}

	salud := summaries[1]
	if !salud.MontoTotalAdjudicado.Equal(decimal.NewFromInt(300)) {
		t.Errorf("salud total = %s, want 300", salud.MontoTotalAdjudicado)
	}
	if salud.EmpresasAdjudicatarias != 2 {
		t.Errorf("salud winners = %d, want 2", salud.EmpresasAdjudicatarias)
	}
}

func TestAggregatesAreDeterministic(t *testing.T) {
	tenders := testTenders()
	first := CompanyProfiles(tenders)
	for range 5 {
		again := CompanyProfiles(tenders)
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("profiles differ across recomputation: %+v vs %+v", first[i], again[i])
			}
		}
	}
}

func TestAggregatesEmptyInput(t *testing.T) {
	if got := CompanyProfiles(nil); len(got) != 0 {
		t.Errorf("CompanyProfiles(nil) = %+v, want empty", got)
	}
	if got := AgencySummaries(nil); len(got) != 0 {
		t.Errorf("AgencySummaries(nil) = %+v, want empty", got)
	}
}
