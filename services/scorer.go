package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"news-bureau/providers"
)

// ScoreWeights are the relative weights of the scoring axes.
type ScoreWeights struct {
	Freshness   float64
	Relevance   float64
	Credibility float64
	Richness    float64
}

// DefaultWeights sums to 1.0; the absolute magnitude of a score is an
// implementation detail, only relative ordering across a batch matters.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{Freshness: 0.30, Relevance: 0.30, Credibility: 0.20, Richness: 0.20}
}

// DefaultKeywords are the high-priority terms searched in title and body.
var DefaultKeywords = []string{
	"iran", "iranian", "tehran", "persia", "persian",
	"nuclear", "sanctions", "jcpoa", "irgc",
	"khamenei", "president", "supreme leader",
}

// DefaultCategoryWeights boosts high-value categories. Unknown categories
// get a neutral 1.0, never zero.
var DefaultCategoryWeights = map[string]float64{
	"Politics":                       1.15,
	"Economy, Business and Finance":  1.10,
	"International Relations":        1.15,
	"Security":                       1.10,
	"Defense":                        1.10,
	"Diplomacy":                      1.10,
}

// Scorer computes a priority score from article attributes alone: no I/O,
// no side effects. Identical inputs always yield the identical score.
type Scorer struct {
	Weights         ScoreWeights
	Keywords        []string
	CategoryWeights map[string]float64
	Horizon         time.Duration

	// Now is injectable so freshness is reproducible in tests.
	Now func() time.Time
}

// NewScorer builds a scorer with the default weight and keyword tables.
func NewScorer() *Scorer {
	return &Scorer{
		Weights:         DefaultWeights(),
		Keywords:        DefaultKeywords,
		CategoryWeights: DefaultCategoryWeights,
		Horizon:         30 * 24 * time.Hour,
		Now:             time.Now,
	}
}

// ScoreBreakdown is the per-axis explanation of a score.
type ScoreBreakdown struct {
	Freshness      float64 `json:"freshness"`
	Relevance      float64 `json:"relevance"`
	Credibility    float64 `json:"credibility"`
	Richness       float64 `json:"richness"`
	CategoryWeight float64 `json:"category_weight"`
	Total          float64 `json:"total"`
}

// Score computes the weighted sum of the sub-scores times the category
// multiplier, rounded to three decimals.
func (s *Scorer) Score(c providers.Candidate) float64 {
	return s.Explain(c).Total
}

// Explain returns the full scoring breakdown for one candidate.
func (s *Scorer) Explain(c providers.Candidate) ScoreBreakdown {
	b := ScoreBreakdown{
		Freshness:      s.freshness(c.Published),
		Relevance:      s.relevance(c.Title, c.HighlightText),
		Credibility:    credibility(c.DomainRank),
		Richness:       richness(c.HighlightText),
		CategoryWeight: s.categoryWeight(c.Categories),
	}
	total := b.Freshness*s.Weights.Freshness +
		b.Relevance*s.Weights.Relevance +
		b.Credibility*s.Weights.Credibility +
		b.Richness*s.Weights.Richness
	b.Total = math.Round(total*b.CategoryWeight*1000) / 1000
	return b
}

// freshness decays linearly over the horizon. Future timestamps (clock
// skew) are clamped to maximum, never penalized; anything older than the
// horizon scores zero on this axis.
func (s *Scorer) freshness(published time.Time) float64 {
	age := s.Now().UTC().Sub(published.UTC())
	if age < 0 {
		return 1.0
	}
	if age >= s.Horizon {
		return 0.0
	}
	return 1.0 - age.Seconds()/s.Horizon.Seconds()
}

// relevance counts keyword hits case-insensitively. Title hits weigh double
// and the effective count is capped so keyword stuffing cannot run away.
func (s *Scorer) relevance(title, body string) float64 {
	if title == "" && body == "" {
		return 0.0
	}
	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)

	hits := 0
	for _, kw := range s.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(titleLower, kw) {
			hits += 2
		} else if strings.Contains(bodyLower, kw) {
			hits++
		}
	}

	switch {
	case hits == 0:
		return 0.3
	case hits == 1:
		return 0.6
	case hits == 2:
		return 0.8
	default:
		return 1.0
	}
}

// credibility maps a domain rank into banded scores; lower rank means a
// more credible source. Unknown rank gets the neutral middle.
func credibility(rank int) float64 {
	switch {
	case rank <= 0:
		return 0.5
	case rank <= 1000:
		return 0.9 + 0.1*float64(1000-rank)/1000
	case rank <= 10000:
		return 0.7 + 0.2*float64(10000-rank)/9000
	case rank <= 100000:
		return 0.4 + 0.3*float64(100000-rank)/90000
	case rank <= 1000000:
		return 0.1 + 0.3*float64(1000000-rank)/900000
	default:
		return math.Max(0, 0.1*float64(2000000-rank)/1000000)
	}
}

// richness saturates with body length so very long articles see diminishing
// returns instead of dominating the batch.
func richness(body string) float64 {
	n := float64(len(strings.TrimSpace(body)))
	return n / (n + 600)
}

// categoryWeight returns the best multiplier among the candidate's
// categories, defaulting to the neutral 1.0.
func (s *Scorer) categoryWeight(categories []string) float64 {
	best := 1.0
	for _, cat := range categories {
		if w, ok := s.CategoryWeights[cat]; ok && w > best {
			best = w
		}
	}
	return best
}

// ScoredCandidate pairs a candidate with its computed score for batch
// ordering.
type ScoredCandidate struct {
	Candidate providers.Candidate
	Score     float64
}

// SortByScore orders a batch by score descending; ties break by the most
// recent published timestamp.
func SortByScore(batch []ScoredCandidate) {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].Score != batch[j].Score {
			return batch[i].Score > batch[j].Score
		}
		return batch[i].Candidate.Published.After(batch[j].Candidate.Published)
	})
}
