package usecase

import (
	"sort"
	"strings"
	"unicode"

	"telegram-affiliate-bot/internal/domain/model"
)

// Score tiers. The first rule that applies wins; tiers never add up.
const (
	ScoreExact        = 1.0
	ScorePrefix       = 0.9
	ScoreContains     = 0.8
	ScoreWordPrefix   = 0.7
	ScoreWordContains = 0.6
	overlapWeight     = 0.5
	overlapMinimum    = 0.5
)

// Match scores every candidate against term and returns those with a positive score,
// best first. Equal scores are ordered by BaseRate descending; candidates with equal
// score and rate keep their input order. The result is not truncated.
func Match(candidates []model.Merchant, term string) []model.SearchCandidate {
	term = normalize(term)
	if term == "" || len(candidates) == 0 {
		return []model.SearchCandidate{}
	}
	out := make([]model.SearchCandidate, 0, len(candidates))
	for _, m := range candidates {
		if s := score(normalize(m.DisplayName), term); s > 0 {
			out = append(out, model.SearchCandidate{Merchant: m, MatchScore: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].BaseRate > out[j].BaseRate
	})
	return out
}

// Score returns the relevance of displayName for term in [0,1].
func Score(displayName, term string) float64 {
	term = normalize(term)
	if term == "" {
		return 0
	}
	return score(normalize(displayName), term)
}

func score(name, term string) float64 {
	switch {
	case name == term:
		return ScoreExact
	case strings.HasPrefix(name, term):
		return ScorePrefix
	case strings.Contains(name, term):
		return ScoreContains
	}

	words := splitWords(name)
	for _, w := range words {
		if strings.HasPrefix(w, term) {
			return ScoreWordPrefix
		}
	}
	for _, w := range words {
		if strings.Contains(w, term) {
			return ScoreWordContains
		}
	}

	if s := charOverlap(name, term); s > overlapMinimum {
		return s * overlapWeight
	}
	return 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}

// charOverlap counts characters shared by a and b as a multiset (each rune
// instance matches at most once) over the longer length.
func charOverlap(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	sort.Slice(ra, func(i, j int) bool { return ra[i] < ra[j] })
	sort.Slice(rb, func(i, j int) bool { return rb[i] < rb[j] })

	common, i, j := 0, 0, 0
	for i < len(ra) && j < len(rb) {
		switch {
		case ra[i] == rb[j]:
			common++
			i++
			j++
		case ra[i] < rb[j]:
			i++
		default:
			j++
		}
	}
	return float64(common) / float64(longest)
}
