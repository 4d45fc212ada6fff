package resolve

import (
	"log/slog"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
)

// Registry is the lookup view of the company reference dataset: folded
// normalized names mapped back to their CUIT and display name.
type Registry struct {
	names     []string
	companies map[string]boletin.Company
}

// NewRegistry builds the matching view. Companies without a CUIT are
// dropped; duplicate CUITs keep the first occurrence.
func NewRegistry(companies []boletin.Company) *Registry {
	r := &Registry{companies: make(map[string]boletin.Company, len(companies))}
	seen := make(map[string]bool, len(companies))
	for _, c := range companies {
		if c.CUIT == "" || seen[c.CUIT] {
			continue
		}
		seen[c.CUIT] = true
		normalized := c.NombreNormalizado
		if normalized == "" {
			normalized = NormalizeCompanyName(c.Nombre)
		}
		key := foldForMatch(normalized)
		if _, dup := r.companies[key]; dup {
			continue
		}
		r.companies[key] = c
		r.names = append(r.names, key)
	}
	sort.Strings(r.names)
	return r
}

// Len returns the number of distinct registry companies.
func (r *Registry) Len() int { return len(r.names) }

// foldForMatch prepares a string for similarity scoring: diacritics and
// case folded, and suffix periods stripped so "ACME S.A." and "ACME SA"
// tokenize identically.
func foldForMatch(s string) string {
	return strings.ReplaceAll(Fold(s), ".", "")
}

// Config bounds the sliding phrase window and the similarity threshold.
type Config struct {
	// Threshold is the minimum token-set-ratio score (0-100).
	Threshold int
	// MinWindowWords and MaxWindowWords bound the phrase window slid over
	// the tender text. Company names rarely span fewer than 3 or more
	// than 5 words.
	MinWindowWords int
	MaxWindowWords int
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 85
	}
	if c.MinWindowWords <= 0 {
		c.MinWindowWords = 3
	}
	if c.MaxWindowWords < c.MinWindowWords {
		c.MaxWindowWords = c.MinWindowWords + 2
	}
	return c
}

// Matcher finds registry companies in tender text.
type Matcher struct {
	registry *Registry
	cfg      Config
	logger   *slog.Logger
}

func NewMatcher(registry *Registry, cfg Config) *Matcher {
	return &Matcher{
		registry: registry,
		cfg:      cfg.withDefaults(),
		logger:   logger.WithComponent("fuzzy-matcher"),
	}
}

// Match slides word windows over the folded text and scores each window
// against every registry name with the token-set ratio. Matches are
// deduplicated by CUIT and tagged with the tender's stage. A tender may
// match zero, one, or many companies.
func (m *Matcher) Match(texto string, etapa boletin.Stage) []boletin.CompanyMatch {
	folded := foldForMatch(strings.TrimSpace(texto))
	if len(folded) < 10 {
		return nil
	}
	words := strings.Fields(folded)
	found := make(map[string]boletin.CompanyMatch)
	for size := m.cfg.MinWindowWords; size <= m.cfg.MaxWindowWords; size++ {
		for i := 0; i+size <= len(words); i++ {
			segment := strings.Join(words[i:i+size], " ")
			name, score := m.best(segment)
			if score < m.cfg.Threshold {
				continue
			}
			company := m.registry.companies[name]
			if _, dup := found[company.CUIT]; dup {
				continue
			}
			found[company.CUIT] = boletin.CompanyMatch{
				CUIT:   company.CUIT,
				Nombre: company.Nombre,
				Etapa:  etapa,
			}
			m.logger.Debug("company matched", "cuit", company.CUIT, "name", company.Nombre, "score", score)
		}
	}
	matches := make([]boletin.CompanyMatch, 0, len(found))
	for _, match := range found {
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CUIT < matches[j].CUIT })
	return matches
}

// best returns the highest-scoring registry name for a segment.
func (m *Matcher) best(segment string) (string, int) {
	bestName, bestScore := "", -1
	for _, name := range m.registry.names {
		if score := fuzzy.TokenSetRatio(segment, name); score > bestScore {
			bestName, bestScore = name, score
		}
	}
	return bestName, bestScore
}
