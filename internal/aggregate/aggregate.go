// Package aggregate recomputes the Silver summary tables from the full set
// of enriched tenders. It is a pure function of its input: no accumulated
// state, deterministic output ordering, safe to run any number of times.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
)

// CompanyProfiles computes per-company appearance and adjudication-win
// counts plus the company's top agency by wins and by appearances.
// Agency ties break on the lowest agency identifier.
func CompanyProfiles(tenders []boletin.Tender) []boletin.CompanyProfile {
	type tally struct {
		nombre      string
		appearances int
		wins        int
		byAgency    map[string]int
		winsByOrg   map[string]int
	}
	tallies := make(map[string]*tally)
	for _, t := range tenders {
		for _, match := range t.Empresas {
			c := tallies[match.CUIT]
			if c == nil {
				c = &tally{
					nombre:    match.Nombre,
					byAgency:  make(map[string]int),
					winsByOrg: make(map[string]int),
				}
				tallies[match.CUIT] = c
			}
			c.appearances++
			c.byAgency[t.Organismo]++
			if t.Etapa == boletin.StageAdjudicacion {
				c.wins++
				c.winsByOrg[t.Organismo]++
			}
		}
	}
	profiles := make([]boletin.CompanyProfile, 0, len(tallies))
	for cuit, c := range tallies {
		profiles = append(profiles, boletin.CompanyProfile{
			CUIT:                       cuit,
			Nombre:                     c.nombre,
			Presentaciones:             c.appearances,
			PresentacionesAdjudicacion: c.wins,
			TopOrganismoAdjudicaciones: topAgency(c.winsByOrg),
			TopOrganismoPresentaciones: topAgency(c.byAgency),
		})
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].CUIT < profiles[j].CUIT })
	return profiles
}

// AgencySummaries computes, per agency, the total adjudicated amount (sum
// over adjudication-stage tenders a company won) and the distinct count of
// winning companies.
func AgencySummaries(tenders []boletin.Tender) []boletin.AgencySummary {
	type tally struct {
		total   decimal.Decimal
		winners map[string]bool
	}
	tallies := make(map[string]*tally)
	for _, t := range tenders {
		if t.Etapa != boletin.StageAdjudicacion || len(t.Empresas) == 0 {
			continue
		}
		a := tallies[t.Organismo]
		if a == nil {
			a = &tally{winners: make(map[string]bool)}
			tallies[t.Organismo] = a
		}
		if t.Monto.Known {
			a.total = a.total.Add(t.Monto.Valor)
		}
		for _, match := range t.Empresas {
			a.winners[match.CUIT] = true
		}
	}
	summaries := make([]boletin.AgencySummary, 0, len(tallies))
	for organismo, a := range tallies {
		summaries = append(summaries, boletin.AgencySummary{
			Organismo:              organismo,
			MontoTotalAdjudicado:   a.total,
			EmpresasAdjudicatarias: len(a.winners),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Organismo < summaries[j].Organismo })
	return summaries
}

// topAgency picks the agency with the highest count, breaking ties on the
// lowest agency identifier so recomputation is deterministic.
func topAgency(counts map[string]int) string {
	best, bestCount := "", -1
	for organismo, count := range counts {
		if count > bestCount || (count == bestCount && organismo < best) {
			best, bestCount = organismo, count
		}
	}
	return best
}
