package api

import (
	"time"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
)

// Day is everything the API returns for one published day: the bulletin
// plus its norms, flattened out of the API's nested
// subsección → tipo → organismo grouping.
type Day struct {
	Bulletin boletin.Bulletin
	Norms    []boletin.Norm
}

// Party is one raw OCID party from the annual procurement dataset.
// Suppliers carry ids like "AR-CUIT-30-12345678-9-supplier".
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Wire DTOs. The API nests norms three levels deep and is inconsistent
// about numeric types, so everything decodes into loose shapes first.

type dayPayload struct {
	Boletin *bulletinDTO `json:"boletin"`
	Normas  normasDTO    `json:"normas"`
}

type bulletinDTO struct {
	Numero           int64  `json:"numero"`
	FechaPublicacion string `json:"fecha_publicacion"`
	Nombre           string `json:"nombre"`
	URLBoletin       string `json:"url_boletin"`
	Separata         string `json:"separata"`
}

type normasDTO struct {
	// Errores carries server-side failures inside an otherwise valid
	// response (the upstream XML source being unavailable, typically).
	Errores []string                                `json:"errores"`
	Normas  map[string]map[string]map[string][]normDTO `json:"normas"`
}

type normDTO struct {
	IDNorma  int64  `json:"id_norma"`
	Nombre   string `json:"nombre"`
	Sumario  string `json:"sumario"`
	URLNorma string `json:"url_norma"`
}

type agencyDTO struct {
	ID     int64  `json:"id_organismo"`
	Nombre string `json:"nombre"`
}

type territorialUnitDTO struct {
	ID     int64  `json:"id_reparticion"`
	Nombre string `json:"nombre"`
}

type procurementReleaseDTO struct {
	Parties []Party `json:"parties"`
}

// toDomain flattens the payload into domain records, stamping every row
// with the same extraction timestamp.
func (p dayPayload) toDomain(requested time.Time, extractedAt time.Time) Day {
	fecha := requested
	if t, err := time.Parse(boletin.DateLayout, p.Boletin.FechaPublicacion); err == nil {
		fecha = t
	}
	day := Day{
		Bulletin: boletin.Bulletin{
			Numero:           p.Boletin.Numero,
			FechaPublicacion: fecha,
			Anio:             fecha.Year(),
			Nombre:           p.Boletin.Nombre,
			URLBoletin:       p.Boletin.URLBoletin,
			Separata:         p.Boletin.Separata,
			ExtractedAt:      extractedAt,
		},
	}
	for subseccion, tipos := range p.Normas.Normas {
		for tipoNorma, organismos := range tipos {
			for organismo, normas := range organismos {
				for _, n := range normas {
					day.Norms = append(day.Norms, boletin.Norm{
						IDNorma:          n.IDNorma,
						NumeroBoletin:    p.Boletin.Numero,
						FechaPublicacion: fecha,
						Subseccion:       subseccion,
						TipoNorma:        tipoNorma,
						Organismo:        organismo,
						Nombre:           n.Nombre,
						Sumario:          n.Sumario,
						URLNorma:         n.URLNorma,
						ExtractedAt:      extractedAt,
					})
				}
			}
		}
	}
	return day
}
