package storage

import (
	"context"
	"testing"
	"time"
)

var testDataset = Dataset{
	Table:        "boletines",
	MatchKey:     "numero",
	PartitionKey: "anio",
	Columns:      []string{"numero", "anio", "nombre", "extracted_at"},
	Recency:      true,
}

func TestBuildMergeQuery(t *testing.T) {
	got := buildMergeQuery(testDataset)
	want := "INSERT INTO boletines (numero, anio, nombre, extracted_at) " +
		"VALUES ($1, $2, $3, $4) " +
		"ON CONFLICT (numero) DO UPDATE SET " +
		"anio = EXCLUDED.anio, nombre = EXCLUDED.nombre, extracted_at = EXCLUDED.extracted_at " +
		"WHERE boletines.extracted_at <= EXCLUDED.extracted_at"
	if got != want {
		t.Errorf("buildMergeQuery =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildMergeQueryWithoutRecency(t *testing.T) {
	ds := Dataset{
		Table:    "empresas",
		MatchKey: "cuit",
		Columns:  []string{"cuit", "nombre"},
	}
	got := buildMergeQuery(ds)
	want := "INSERT INTO empresas (cuit, nombre) VALUES ($1, $2) " +
		"ON CONFLICT (cuit) DO UPDATE SET nombre = EXCLUDED.nombre"
	if got != want {
		t.Errorf("buildMergeQuery = %s, want %s", got, want)
	}
}

func TestBuildInsertQuery(t *testing.T) {
	got := buildInsertQuery(testDataset)
	want := "INSERT INTO boletines (numero, anio, nombre, extracted_at) VALUES ($1, $2, $3, $4)"
	if got != want {
		t.Errorf("buildInsertQuery = %s, want %s", got, want)
	}
}

func TestRowArgsMissingColumn(t *testing.T) {
	_, err := rowArgs(testDataset, Row{"numero": 1, "anio": 2025})
	if err == nil {
		t.Fatal("expected error for row missing columns")
	}
}

func TestMemoryMergeReplacesByMatchKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	row := func(numero int64, nombre string, at time.Time) Row {
		return Row{"numero": numero, "anio": 2025, "nombre": nombre, "extracted_at": at}
	}

	if _, err := m.Merge(ctx, testDataset, []Row{row(1, "first", now), row(2, "other", now)}); err != nil {
		t.Fatal(err)
	}
	// Re-merging the same key must replace, not duplicate.
	if _, err := m.Merge(ctx, testDataset, []Row{row(1, "updated", now.Add(time.Hour))}); err != nil {
		t.Fatal(err)
	}

	if n := m.Count("boletines"); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	for _, r := range m.Rows("boletines") {
		if r["numero"] == int64(1) && r["nombre"] != "updated" {
			t.Errorf("row 1 not replaced: %+v", r)
		}
	}
}

func TestMemoryMergeRecencyGuard(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	fresh := Row{"numero": int64(1), "anio": 2025, "nombre": "fresh", "extracted_at": now}
	stale := Row{"numero": int64(1), "anio": 2025, "nombre": "stale", "extracted_at": now.Add(-time.Hour)}

	if _, err := m.Merge(ctx, testDataset, []Row{fresh}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Merge(ctx, testDataset, []Row{stale}); err != nil {
		t.Fatal(err)
	}

	rows := m.Rows("boletines")
	if len(rows) != 1 || rows[0]["nombre"] != "fresh" {
		t.Errorf("stale row replaced fresh one: %+v", rows)
	}
}

func TestMemoryOverwriteReplacesEverything(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ds := Dataset{Table: "empresas", MatchKey: "cuit", Columns: []string{"cuit", "nombre"}}

	if _, err := m.Overwrite(ctx, ds, []Row{
		{"cuit": "30-1", "nombre": "a"},
		{"cuit": "30-2", "nombre": "b"},
	}); err != nil {
		t.Fatal(err)
	}
	n, err := m.Overwrite(ctx, ds, []Row{{"cuit": "30-3", "nombre": "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}
	rows := m.Rows("empresas")
	if len(rows) != 1 || rows[0]["cuit"] != "30-3" {
		t.Errorf("rows = %+v, want only the new snapshot", rows)
	}
}
