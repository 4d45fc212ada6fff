package boletin

import "github.com/baires-data/boletin-pipeline/internal/storage"

// Bronze dataset definitions. Merge replaces by match key and keeps the
// declared partition columns; the recency guard rejects rows older than the
// stored extraction timestamp.
var (
	DatasetBoletines = storage.Dataset{
		Table:        "boletines",
		MatchKey:     "numero",
		PartitionKey: "anio",
		Columns: []string{
			"numero", "fecha_publicacion", "anio", "nombre",
			"url_boletin", "separata", "extracted_at",
		},
		Recency: true,
	}

	DatasetNormas = storage.Dataset{
		Table:        "normas",
		MatchKey:     "id_norma",
		PartitionKey: "tipo_norma",
		Columns: []string{
			"id_norma", "numero_boletin", "fecha_publicacion", "subseccion",
			"tipo_norma", "organismo", "nombre", "sumario", "url_norma",
			"extracted_at",
		},
		Recency: true,
	}

	DatasetLicitaciones = storage.Dataset{
		Table:    "licitaciones",
		MatchKey: "id_norma",
		Columns: []string{
			"id_norma", "fecha_publicacion", "organismo", "nombre",
			"url_norma", "texto", "extracted_at",
		},
		Recency: true,
	}
)

// Full-refresh reference datasets; always written with Overwrite.
var (
	DatasetEmpresas = storage.Dataset{
		Table:    "empresas",
		MatchKey: "cuit",
		Columns:  []string{"cuit", "nombre", "nombre_normalizado", "pais"},
	}

	DatasetOrganismos = storage.Dataset{
		Table:    "organismos",
		MatchKey: "id_organismo",
		Columns:  []string{"id_organismo", "nombre"},
	}

	DatasetReparticiones = storage.Dataset{
		Table:    "reparticiones",
		MatchKey: "id_reparticion",
		Columns:  []string{"id_reparticion", "nombre"},
	}
)

// Silver datasets; pure recomputations, always written with Overwrite.
var (
	DatasetLicitacionesEnriquecidas = storage.Dataset{
		Table:    "licitaciones_enriquecidas",
		MatchKey: "id_norma",
		Columns: []string{
			"id_norma", "fecha_publicacion", "organismo", "nombre",
			"url_norma", "tipo_licitacion", "etapa_licitacion",
			"codigo_licitacion", "moneda", "monto", "monto_conocido",
			"extracted_at",
		},
	}

	DatasetLicitacionesEmpresas = storage.Dataset{
		Table:    "licitaciones_empresas",
		MatchKey: "id_norma",
		Columns:  []string{"id_norma", "cuit", "nombre", "etapa"},
	}

	DatasetPerfilEmpresas = storage.Dataset{
		Table:    "perfil_empresas",
		MatchKey: "cuit",
		Columns: []string{
			"cuit", "nombre", "presentaciones", "presentaciones_adjudicacion",
			"top_organismo_adjudicaciones", "top_organismo_presentaciones",
		},
	}

	DatasetResumenOrganismos = storage.Dataset{
		Table:    "resumen_organismos",
		MatchKey: "organismo",
		Columns:  []string{"organismo", "monto_total_adjudicado", "empresas_adjudicatarias"},
	}
)

// Row builders keep column order aligned with the dataset definitions.

func (b Bulletin) Row() storage.Row {
	return storage.Row{
		"numero":            b.Numero,
		"fecha_publicacion": b.FechaPublicacion,
		"anio":              b.Anio,
		"nombre":            b.Nombre,
		"url_boletin":       b.URLBoletin,
		"separata":          b.Separata,
		"extracted_at":      b.ExtractedAt,
	}
}

func (n Norm) Row() storage.Row {
	return storage.Row{
		"id_norma":          n.IDNorma,
		"numero_boletin":    n.NumeroBoletin,
		"fecha_publicacion": n.FechaPublicacion,
		"subseccion":        n.Subseccion,
		"tipo_norma":        n.TipoNorma,
		"organismo":         n.Organismo,
		"nombre":            n.Nombre,
		"sumario":           n.Sumario,
		"url_norma":         n.URLNorma,
		"extracted_at":      n.ExtractedAt,
	}
}

func (t RawTender) Row() storage.Row {
	return storage.Row{
		"id_norma":          t.IDNorma,
		"fecha_publicacion": t.FechaPublicacion,
		"organismo":         t.Organismo,
		"nombre":            t.Nombre,
		"url_norma":         t.URLNorma,
		"texto":             t.Texto,
		"extracted_at":      t.ExtractedAt,
	}
}

func (c Company) Row() storage.Row {
	return storage.Row{
		"cuit":               c.CUIT,
		"nombre":             c.Nombre,
		"nombre_normalizado": c.NombreNormalizado,
		"pais":               c.Pais,
	}
}

func (a Agency) Row() storage.Row {
	return storage.Row{"id_organismo": a.ID, "nombre": a.Nombre}
}

func (u TerritorialUnit) Row() storage.Row {
	return storage.Row{"id_reparticion": u.ID, "nombre": u.Nombre}
}

func (t Tender) Row() storage.Row {
	return storage.Row{
		"id_norma":          t.IDNorma,
		"fecha_publicacion": t.FechaPublicacion,
		"organismo":         t.Organismo,
		"nombre":            t.Nombre,
		"url_norma":         t.URLNorma,
		"tipo_licitacion":   t.Tipo,
		"etapa_licitacion":  string(t.Etapa),
		"codigo_licitacion": t.Codigo,
		"moneda":            t.Monto.Moneda,
		"monto":             t.Monto.Valor,
		"monto_conocido":    t.Monto.Known,
		"extracted_at":      t.ExtractedAt,
	}
}

// MatchRows flattens the tender's company matches into licitaciones_empresas rows.
func (t Tender) MatchRows() []storage.Row {
	rows := make([]storage.Row, 0, len(t.Empresas))
	for _, m := range t.Empresas {
		rows = append(rows, storage.Row{
			"id_norma": t.IDNorma,
			"cuit":     m.CUIT,
			"nombre":   m.Nombre,
			"etapa":    string(m.Etapa),
		})
	}
	return rows
}

func (p CompanyProfile) Row() storage.Row {
	return storage.Row{
		"cuit":                         p.CUIT,
		"nombre":                       p.Nombre,
		"presentaciones":               p.Presentaciones,
		"presentaciones_adjudicacion":  p.PresentacionesAdjudicacion,
		"top_organismo_adjudicaciones": p.TopOrganismoAdjudicaciones,
		"top_organismo_presentaciones": p.TopOrganismoPresentaciones,
	}
}

func (s AgencySummary) Row() storage.Row {
	return storage.Row{
		"organismo":               s.Organismo,
		"monto_total_adjudicado":  s.MontoTotalAdjudicado,
		"empresas_adjudicatarias": s.EmpresasAdjudicatarias,
	}
}
