// Package tender turns a tender norm's name, summary, and PDF text into
// structured fields: tender type, stage, code, and a currency-tagged
// monetary amount. All extraction goes through ordered, named pattern
// rules so each rule is independently testable.
package tender

import (
	"regexp"
	"strings"
)

// Fields holds the structured fields parsed from a tender norm's name.
type Fields struct {
	Tipo   string
	Etapa  string
	Codigo string
}

var (
	// Names look like "Contratación Menor / Preadjudicación N° 401-0086-LPU25".
	nameSplitRe = regexp.MustCompile(`\s*/\s*`)
	stageCodeRe = regexp.MustCompile(`(?i)(.*?)\s*N°\s*(.*)`)
)

// ParseName splits a tender name into type, stage, and code. A name without
// the "tipo / etapa" shape yields zero Fields.
func ParseName(nombre string) Fields {
	var f Fields
	parts := nameSplitRe.Split(nombre, 2)
	if len(parts) < 2 {
		return f
	}
	f.Tipo = strings.TrimSpace(parts[0])
	if m := stageCodeRe.FindStringSubmatch(parts[1]); m != nil {
		f.Etapa = strings.TrimSpace(m[1])
		f.Codigo = strings.TrimSpace(m[2])
	} else {
		f.Etapa = strings.TrimSpace(parts[1])
	}
	return f
}

// ParseNameWithSumario falls back to the sumario field when the name does
// not reveal a stage: a summary announcing an opening date marks the
// "Apertura" stage.
func ParseNameWithSumario(nombre, sumario string) Fields {
	f := ParseName(nombre)
	if f.Etapa == "" {
		lower := strings.ToLower(sumario)
		if strings.Contains(lower, "apertura:") || strings.Contains(lower, "fecha de apertura") {
			f.Etapa = "Apertura"
		}
	}
	return f
}

// stageMap normalizes the stage vocabulary, accent-insensitively. Stages
// outside the vocabulary map to the empty string.
var stageMap = map[string]string{
	"llamado":               "llamado",
	"preadjudicación":       "preadjudicacion",
	"preadjudicacion":       "preadjudicacion",
	"adjudicación":          "adjudicacion",
	"adjudicacion":          "adjudicacion",
	"prórroga":              "prorroga",
	"prorroga":              "prorroga",
	"circular con consulta": "circular_con_consulta",
	"circular sin consulta": "circular_sin_consulta",
	"corrección":            "correccion",
	"correccion":            "correccion",
	"apertura":              "apertura",
}

// NormalizeStage maps a raw stage string onto the standard vocabulary.
func NormalizeStage(etapa string) string {
	return stageMap[strings.ToLower(strings.TrimSpace(etapa))]
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText flattens newlines and collapses whitespace runs, matching how
// tender PDF text is normalized before any pattern rule runs.
func CleanText(texto string) string {
	texto = strings.ReplaceAll(texto, "\n", " ")
	texto = whitespaceRe.ReplaceAllString(texto, " ")
	return strings.TrimSpace(texto)
}
