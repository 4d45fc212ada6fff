package tender

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
)

// amountRule is one named monetary pattern. Rules run in order; all
// candidates are pooled and the largest value wins (documented tie-break:
// tenders quote partial amounts per item before the total, and the total
// is the largest figure).
type amountRule struct {
	name string
	re   *regexp.Regexp
	// currency resolves the currency tag from the submatches.
	currency func(m []string) string
	// value is the submatch index of the numeric body.
	value int
}

// Amounts use thousand-separator dots and a decimal comma: 1.000.000,00.
const numberPattern = `((?:\d{1,3}(?:\.\d{3})+|\d+),\d{2})`

var amountRules = []amountRule{
	{
		// "$ 2.400.000,00" or "USD 1.000.000,00"
		name: "currency-prefixed",
		re:   regexp.MustCompile(`(?i)(USD|\$)\s*` + numberPattern),
		currency: func(m []string) string {
			if strings.EqualFold(m[1], "USD") {
				return "USD"
			}
			return "$"
		},
		value: 2,
	},
	{
		// "2.000,50 USD"
		name: "usd-suffixed",
		re:   regexp.MustCompile(`(?i)` + numberPattern + `\s*USD\b`),
		currency: func(m []string) string { return "USD" },
		value: 1,
	},
	{
		// A bare figure with no symbol defaults to pesos. Last so that on
		// equal values an explicit-currency candidate wins.
		name:     "bare-number",
		re:       regexp.MustCompile(numberPattern),
		currency: func(m []string) string { return "$" },
		value:    1,
	},
}

// ExtractAmount scans cleaned tender text for monetary expressions and
// returns the selected amount. Candidates below floor are discarded (item
// lines quote small per-unit figures); no candidate at all yields an
// explicit unknown amount, never a silent zero.
func ExtractAmount(texto string, floor decimal.Decimal) boletin.Amount {
	type candidate struct {
		moneda string
		valor  decimal.Decimal
	}
	var candidates []candidate
	for _, rule := range amountRules {
		for _, m := range rule.re.FindAllStringSubmatch(texto, -1) {
			valor, ok := parseAmount(m[rule.value])
			if !ok || valor.LessThan(floor) {
				continue
			}
			candidates = append(candidates, candidate{moneda: rule.currency(m), valor: valor})
		}
	}
	if len(candidates) == 0 {
		return boletin.Amount{}
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.valor.GreaterThan(best.valor) {
			best = c
		}
	}
	return boletin.Amount{Moneda: best.moneda, Valor: best.valor, Known: true}
}

// parseAmount converts "1.234.567,89" to a decimal.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
