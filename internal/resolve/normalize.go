// Package resolve matches registry companies against tender text by
// approximate string similarity. Matching is case- and diacritic-
// insensitive, and the registry is the only source of truth for company
// identity: no fuzzy match ever creates a new company.
package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold upper-cases and strips diacritics so "Construcción" and
// "CONSTRUCCION" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(folded)
}

// Corporate suffix spellings vary wildly in the registry ("S.A.", "S. A.",
// "SA."); each pattern maps to one canonical form.
var suffixRules = []struct {
	re  *regexp.Regexp
	out string
}{
	{regexp.MustCompile(`(?i)\bS[.\s]*E[.\s]*N[.\s]*C[.\s]*\b`), "S.E.N.C."},
	{regexp.MustCompile(`(?i)\bS[.\s]*A[.\s]*S[.\s]*\b`), "S.A.S."},
	{regexp.MustCompile(`(?i)\bS[.\s]*R[.\s]*L[.\s]*\b`), "S.R.L."},
	{regexp.MustCompile(`(?i)\bC[.\s]*I[.\s]*A[.\s]*\b`), "C.I.A."},
	{regexp.MustCompile(`(?i)\bS[.\s]*A[.\s]*\b`), "S.A."},
	{regexp.MustCompile(`(?i)\bS[.\s]*H[.\s]*\b`), "S.H."},
	{regexp.MustCompile(`(?i)\bS[.\s]*E[.\s]*\b`), "S.E."},
	{regexp.MustCompile(`(?i)\bS[.\s]*C[.\s]*\b`), "S.C."},
}

var (
	dotSpacingRe   = regexp.MustCompile(`\s*\.\s*`)
	trailingDotsRe = regexp.MustCompile(`\.+$`)
)

// NormalizeCompanyName upper-cases a company name and canonicalizes its
// corporate suffix. The S.E.N.C./S.A.S. rules run before their shorter
// prefixes so "S.E.N.C." is not mangled into "S.E.N.C..".
func NormalizeCompanyName(nombre string) string {
	n := dotSpacingRe.ReplaceAllString(strings.ToUpper(nombre), ".")
	for _, rule := range suffixRules {
		n = rule.re.ReplaceAllString(n, rule.out)
	}
	n = trailingDotsRe.ReplaceAllString(n, ".")
	return strings.TrimSpace(n)
}

var ocidSupplierRe = regexp.MustCompile(`^([A-Z]{2})-CUIT-([\d\-]+)-supplier$`)

// ParseOCIDSupplier extracts country and formatted CUIT (NN-NNNNNNNN-N)
// from an OCID party identifier like "AR-CUIT-30-12345678-9-supplier".
// The second return is false when the id is not a supplier with a valid
// 11-digit CUIT.
func ParseOCIDSupplier(partyID string) (pais, cuit string, ok bool) {
	m := ocidSupplierRe.FindStringSubmatch(partyID)
	if m == nil {
		return "", "", false
	}
	raw := strings.ReplaceAll(m[2], "-", "")
	if len(raw) != 11 {
		return "", "", false
	}
	return m[1], raw[:2] + "-" + raw[2:10] + "-" + raw[10:], true
}
