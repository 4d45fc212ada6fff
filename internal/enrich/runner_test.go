package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baires-data/boletin-pipeline/internal/storage"
	"github.com/baires-data/boletin-pipeline/pkg/config"
)

type fakeSource struct {
	tenders   []storage.TenderRow
	companies []storage.CompanyRow
}

func (f *fakeSource) Tenders(ctx context.Context) ([]storage.TenderRow, error) {
	return f.tenders, nil
}

func (f *fakeSource) Companies(ctx context.Context) ([]storage.CompanyRow, error) {
	return f.companies, nil
}

func testConfig() config.ResolverConfig {
	return config.ResolverConfig{
		MatchThreshold: 85,
		MinWindowWords: 3,
		MaxWindowWords: 5,
		AmountFloor:    100000,
	}
}

func TestRunRebuildsSilverLayer(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		companies: []storage.CompanyRow{
			{CUIT: "30-11111111-1", Nombre: "Acme Construcciones S.A.", NombreNormalizado: "ACME CONSTRUCCIONES S.A.", Pais: "AR"},
			{CUIT: "30-22222222-2", Nombre: "Beta Servicios S.R.L.", NombreNormalizado: "BETA SERVICIOS S.R.L.", Pais: "AR"},
		},
		tenders: []storage.TenderRow{
			{
				IDNorma:          111,
				FechaPublicacion: day,
				Organismo:        "Ministerio de Salud",
				Nombre:           "Licitación Pública / Adjudicación N° 401-0086-LPU25",
				Texto:            "ADJUDICASE a la firma ACME CONSTRUCCIONES S.A. la suma de $ 2.400.000,00",
				ExtractedAt:      day,
			},
			{
				IDNorma:          112,
				FechaPublicacion: day,
				Organismo:        "Ministerio de Educación",
				Nombre:           "Contratación Menor / Llamado N° 412-2710-CME25",
				Texto:            "llamase a contratacion para la provision de mobiliario escolar",
				ExtractedAt:      day,
			},
		},
	}
	store := storage.NewMemory()
	runner := New(Params{Source: source, Store: store, Config: testConfig()})

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Tenders != 2 || report.Companies != 2 {
		t.Errorf("report = %+v", report)
	}
	if report.Matches != 1 {
		t.Errorf("matches = %d, want 1", report.Matches)
	}
	if report.AmountsUnknown != 1 {
		t.Errorf("amounts unknown = %d, want 1 (the llamado has none)", report.AmountsUnknown)
	}

	if n := store.Count("licitaciones_enriquecidas"); n != 2 {
		t.Errorf("licitaciones_enriquecidas = %d, want 2", n)
	}
	for _, row := range store.Rows("licitaciones_enriquecidas") {
		switch row["id_norma"] {
		case int64(111):
			if row["tipo_licitacion"] != "Licitación Pública" ||
				row["etapa_licitacion"] != "adjudicacion" ||
				row["codigo_licitacion"] != "401-0086-LPU25" {
				t.Errorf("enriched 111 = %+v", row)
			}
			if row["monto_conocido"] != true {
				t.Errorf("111 amount should be known: %+v", row)
			}
			monto, ok := row["monto"].(decimal.Decimal)
			if !ok || !monto.Equal(decimal.NewFromInt(2400000)) {
				t.Errorf("111 monto = %v", row["monto"])
			}
		case int64(112):
			if row["etapa_licitacion"] != "llamado" || row["monto_conocido"] != false {
				t.Errorf("enriched 112 = %+v", row)
			}
		default:
			t.Errorf("unexpected enriched row %+v", row)
		}
	}

	matches := store.Rows("licitaciones_empresas")
	if len(matches) != 1 {
		t.Fatalf("licitaciones_empresas = %+v, want the acme match", matches)
	}
	if matches[0]["cuit"] != "30-11111111-1" || matches[0]["etapa"] != "adjudicacion" {
		t.Errorf("match row = %+v", matches[0])
	}

	profiles := store.Rows("perfil_empresas")
	if len(profiles) != 1 {
		t.Fatalf("perfil_empresas = %+v", profiles)
	}
	if profiles[0]["presentaciones"] != 1 || profiles[0]["presentaciones_adjudicacion"] != 1 {
		t.Errorf("profile = %+v", profiles[0])
	}

	summaries := store.Rows("resumen_organismos")
	if len(summaries) != 1 {
		t.Fatalf("resumen_organismos = %+v", summaries)
	}
	total, ok := summaries[0]["monto_total_adjudicado"].(decimal.Decimal)
	if !ok || !total.Equal(decimal.NewFromInt(2400000)) {
		t.Errorf("summary = %+v", summaries[0])
	}
}

func TestRunHonorsFractionalAmountFloor(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		tenders: []storage.TenderRow{{
			IDNorma:          113,
			FechaPublicacion: day,
			Organismo:        "Ministerio de Salud",
			Nombre:           "Licitación Pública / Adjudicación N° 2",
			Texto:            "ADJUDICASE por la suma de $ 100.000,50",
			ExtractedAt:      day,
		}},
	}
	cfg := testConfig()
	cfg.AmountFloor = 100000.9
	store := storage.NewMemory()
	runner := New(Params{Source: source, Store: store, Config: cfg})

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// 100000.50 sits below the configured floor; truncating the floor to an
	// integer would wrongly let it through.
	if report.AmountsUnknown != 1 {
		t.Errorf("amounts unknown = %d, want 1", report.AmountsUnknown)
	}
	for _, row := range store.Rows("licitaciones_enriquecidas") {
		if row["monto_conocido"] != false {
			t.Errorf("enriched row = %+v, want unknown amount", row)
		}
	}
}

func TestRunIsARecomputationNotAnAccumulation(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		tenders: []storage.TenderRow{{
			IDNorma:          111,
			FechaPublicacion: day,
			Organismo:        "Ministerio de Salud",
			Nombre:           "Licitación Pública / Llamado N° 1",
			Texto:            "llamase a licitacion",
			ExtractedAt:      day,
		}},
	}
	store := storage.NewMemory()
	runner := New(Params{Source: source, Store: store, Config: testConfig()})

	ctx := context.Background()
	for range 3 {
		if _, err := runner.Run(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := store.Count("licitaciones_enriquecidas"); n != 1 {
		t.Errorf("licitaciones_enriquecidas = %d after reruns, want 1", n)
	}

	// A tender removed upstream disappears from the recomputed outputs.
	source.tenders = nil
	if _, err := runner.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if n := store.Count("licitaciones_enriquecidas"); n != 0 {
		t.Errorf("licitaciones_enriquecidas = %d after source emptied, want 0", n)
	}
}
