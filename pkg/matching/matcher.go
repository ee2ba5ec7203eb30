package matching

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/sirupsen/logrus"
)

// Config carries the thresholds and bonus weights for product matching.
type Config struct {
	MinSimilarity    float64
	HighConfidence   float64
	MediumConfidence float64
	ExactWordBonus   float64
	BrandBonus       float64
	SizeBonus        float64
	KeywordBonus     float64
}

func DefaultConfig() Config {
	return Config{
		MinSimilarity:    0.3,
		HighConfidence:   0.8,
		MediumConfidence: 0.6,
		ExactWordBonus:   0.2,
		BrandBonus:       0.15,
		SizeBonus:        0.1,
		KeywordBonus:     0.05,
	}
}

// Score is the per (query, candidate) breakdown. NameSimilarity is the
// weighted blend of sequence similarity and keyword Jaccard before bonuses.
type Score struct {
	TotalScore     float64 `json:"total_score"`
	NameSimilarity float64 `json:"name_similarity"`
	ExactWordBonus float64 `json:"exact_match_bonus"`
	BrandBonus     float64 `json:"brand_match_bonus"`
	SizeBonus      float64 `json:"size_match_bonus"`
	KeywordBonus   float64 `json:"keyword_match_bonus"`
	Confidence     string  `json:"confidence"`
}

type Match struct {
	Candidate catalog.Candidate
	Score     Score
}

// Matcher is pure and stateless given its configuration; it performs no I/O
// and is safe for concurrent use.
type Matcher struct {
	cfg Config

	brands    []string
	sizeWords []string
	stopWords map[string]struct{}
	prefixes  []string
}

var (
	wordRe = regexp.MustCompile(`\b\w+\b`)
	sizeRe = regexp.MustCompile(`\d+(?:\.\d+)?(?:ml|l|g|kg)`)

	unitRewrites = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\b(\d+)\s*litres?\b`), "${1}L"},
		{regexp.MustCompile(`\b(\d+)\s*liters?\b`), "${1}L"},
		{regexp.MustCompile(`\b(\d+)\s*ml\b`), "${1}ml"},
		{regexp.MustCompile(`\b(\d+)\s*grams?\b`), "${1}g"},
		{regexp.MustCompile(`\b(\d+)\s*kgs?\b`), "${1}kg"},
		{regexp.MustCompile(`\b(\d+)\s*kilograms?\b`), "${1}kg"},
	}

	spaceRe = regexp.MustCompile(`\s+`)
)

func NewMatcher(cfg Config) *Matcher {
	stop := map[string]struct{}{}
	for _, w := range []string{
		"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
		"by", "from", "as", "is", "was", "are", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "must", "can", "this", "that", "these",
		"those", "a", "an",
	} {
		stop[w] = struct{}{}
	}

	return &Matcher{
		cfg: cfg,
		brands: []string{
			"woolworths", "coles", "iga", "aldi", "macro", "homebrand",
			"cadbury", "nestle", "kellogg", "uncle tobys", "sanitarium",
			"bega", "devondale", "paul's", "dairy farmers", "norco",
			"steggles", "lilydale", "ingham's", "tegel", "primo",
			"masterfoods", "maggi", "continental", "praise", "fountain",
		},
		sizeWords: []string{
			"ml", "l", "litre", "liter", "g", "kg", "gram", "kilogram",
			"pack", "each", "dozen", "bunch", "bag", "box", "bottle",
			"can", "jar", "tube", "punnet", "tray", "roll", "sheet",
		},
		stopWords: stop,
		prefixes: []string{
			"woolworths ", "coles ", "iga ", "aldi ", "macro ", "homebrand ",
			"select ", "brand ", "organic ", "free range ", "natural ",
		},
	}
}

// Normalize lowercases, strips one known retailer/descriptor prefix, and
// collapses unit spelling variants ("2 litres" becomes "2L").
func (m *Matcher) Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	for _, p := range m.prefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}

	for _, r := range unitRewrites {
		s = r.re.ReplaceAllString(s, r.repl)
	}

	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func (m *Matcher) keywords(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, w := range wordRe.FindAllString(m.Normalize(text), -1) {
		if len(w) < 2 {
			continue
		}
		if _, skip := m.stopWords[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}

func keywordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (m *Matcher) sequenceSimilarity(query, name string) float64 {
	nq, nn := m.Normalize(query), m.Normalize(name)
	if nq == "" || nn == "" {
		return 0
	}
	return sequenceRatio(nq, nn)
}

func (m *Matcher) keywordJaccard(query, name string) float64 {
	qs := keywordSet(m.keywords(query))
	ns := keywordSet(m.keywords(name))
	if len(qs) == 0 || len(ns) == 0 {
		return 0
	}

	inter := 0
	for w := range qs {
		if _, ok := ns[w]; ok {
			inter++
		}
	}
	union := len(qs) + len(ns) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func (m *Matcher) exactWordBonus(query, name string) float64 {
	qs := keywordSet(m.keywords(query))
	if len(qs) == 0 {
		return 0
	}
	ns := keywordSet(m.keywords(name))

	matched := 0
	for w := range qs {
		if _, ok := ns[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(qs)) * m.cfg.ExactWordBonus
}

func (m *Matcher) brandBonus(query, name string) float64 {
	ql, nl := strings.ToLower(query), strings.ToLower(name)
	for _, brand := range m.brands {
		if strings.Contains(ql, brand) && strings.Contains(nl, brand) {
			return m.cfg.BrandBonus
		}
	}
	return 0
}

// sizeBonus grants partial credit for shared unit words and full credit for
// exact normalized size tokens ("2l", "500g"), capped at one bonus.
func (m *Matcher) sizeBonus(query, name string) float64 {
	ql, nl := strings.ToLower(query), strings.ToLower(name)

	bonus := 0.0
	for _, word := range m.sizeWords {
		if strings.Contains(ql, word) && strings.Contains(nl, word) {
			bonus += m.cfg.SizeBonus * 0.5
		}
	}

	nameSizes := keywordSet(sizeRe.FindAllString(nl, -1))
	for _, qSize := range sizeRe.FindAllString(ql, -1) {
		if _, ok := nameSizes[qSize]; ok {
			bonus += m.cfg.SizeBonus
		}
	}

	if bonus > m.cfg.SizeBonus {
		bonus = m.cfg.SizeBonus
	}
	return bonus
}

func (m *Matcher) keywordCountBonus(query, name string) float64 {
	qs := keywordSet(m.keywords(query))
	ns := keywordSet(m.keywords(name))

	matched := 0
	for w := range qs {
		if _, ok := ns[w]; ok {
			matched++
		}
	}

	bonus := float64(matched) * m.cfg.KeywordBonus
	if limit := m.cfg.KeywordBonus * 3; bonus > limit {
		bonus = limit
	}
	return bonus
}

func (m *Matcher) ScoreNames(query, name string) Score {
	if query == "" || name == "" {
		return Score{Confidence: "low"}
	}

	base := m.sequenceSimilarity(query, name)*0.6 + m.keywordJaccard(query, name)*0.4

	exact := m.exactWordBonus(query, name)
	brand := m.brandBonus(query, name)
	size := m.sizeBonus(query, name)
	keyword := m.keywordCountBonus(query, name)

	total := base + exact + brand + size + keyword
	if total > 1.0 {
		total = 1.0
	}

	confidence := "low"
	switch {
	case total >= m.cfg.HighConfidence:
		confidence = "high"
	case total >= m.cfg.MediumConfidence:
		confidence = "medium"
	}

	return Score{
		TotalScore:     total,
		NameSimilarity: base,
		ExactWordBonus: exact,
		BrandBonus:     brand,
		SizeBonus:      size,
		KeywordBonus:   keyword,
		Confidence:     confidence,
	}
}

// Rank scores every candidate against the query, drops everything below the
// minimum similarity bar, and returns a stable descending order (ties keep
// source order).
func (m *Matcher) Rank(query string, candidates []catalog.Candidate) []Match {
	if len(candidates) == 0 {
		return nil
	}

	var ranked []Match
	for _, c := range candidates {
		if c.Name == "" {
			continue
		}
		score := m.ScoreNames(query, c.Name)
		if score.TotalScore >= m.cfg.MinSimilarity {
			ranked = append(ranked, Match{Candidate: c, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.TotalScore > ranked[j].Score.TotalScore
	})

	return ranked
}

// BestMatch returns the top ranked candidate, or nil when no candidate
// clears the minimum similarity bar.
func (m *Matcher) BestMatch(query string, candidates []catalog.Candidate) (*catalog.Candidate, *Score) {
	ranked := m.Rank(query, candidates)
	if len(ranked) == 0 {
		logrus.Debugf("[MATCH] No suitable match for %q among %d candidates", query, len(candidates))
		return nil, nil
	}

	best := ranked[0]
	logrus.WithFields(logrus.Fields{
		"query":      query,
		"product":    best.Candidate.Name,
		"score":      best.Score.TotalScore,
		"confidence": best.Score.Confidence,
		"retailer":   best.Candidate.Retailer,
	}).Debug("[MATCH] Best match found")

	return &best.Candidate, &best.Score
}

// TopMatches returns up to max ranked matches for the query.
func (m *Matcher) TopMatches(query string, candidates []catalog.Candidate, max int) []Match {
	ranked := m.Rank(query, candidates)
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}
