package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"mapdex/internal/mappings"
)

// Accuracy is the minimum similarity a name needs to match without
// containing the search key. Exact (1.0) accepts containment only.
type Accuracy float64

const (
	Exact Accuracy = 1.0
	Fuzzy Accuracy = 0.5
)

// ParseAccuracy accepts "exact", "fuzzy" or a number in (0, 1].
func ParseAccuracy(s string) (Accuracy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return Exact, nil
	case "fuzzy":
		return Fuzzy, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("invalid accuracy %q: want exact, fuzzy or a number in (0, 1]", s)
	}
	return Accuracy(f), nil
}

func (a Accuracy) isExact() bool { return a >= Exact }

// epsilon is the spacing of float64 values just below 1.0.
const epsilon = 0x1p-53

// Facet names which name of an entry produced a match.
type Facet string

const (
	FacetMapped       Facet = "mapped"
	FacetIntermediary Facet = "intermediary"
	FacetObfMerged    Facet = "obf_merged"
	FacetObfClient    Facet = "obf_client"
	FacetObfServer    Facet = "obf_server"
)

// multiplier orders otherwise equal matches: mapped, then intermediary,
// then the obfuscated names.
func (f Facet) multiplier() float64 {
	switch f {
	case FacetMapped:
		return 1
	case FacetIntermediary:
		return 1 - epsilon
	default:
		return 1 - 2*epsilon
	}
}

// Match is the best facet of an entry for a search key.
type Match struct {
	Facet Facet   `json:"facet" yaml:"facet"`
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

type facetName struct {
	facet Facet
	name  string
}

func facetsOf(e *mappings.Entry) []facetName {
	return []facetName{
		{FacetMapped, e.MappedName},
		{FacetIntermediary, e.IntermediaryName},
		{FacetObfMerged, e.Obf.Merged},
		{FacetObfClient, e.Obf.Client},
		{FacetObfServer, e.Obf.Server},
	}
}

// matcher scores entry names against one search key.
type matcher struct {
	key      string
	lowerKey string
	accuracy Accuracy
	// qualified compares full names instead of simple names.
	qualified bool
}

func newMatcher(key string, accuracy Accuracy, qualified bool) *matcher {
	return &matcher{
		key:       key,
		lowerKey:  strings.ToLower(key),
		accuracy:  accuracy,
		qualified: qualified,
	}
}

// score returns the best qualifying facet of e, or false when none qualifies.
func (m *matcher) score(e *mappings.Entry) (Match, bool) {
	var best Match
	found := false
	for _, fn := range facetsOf(e) {
		if fn.name == "" {
			continue
		}
		name := fn.name
		if !m.qualified {
			name = mappings.SimpleName(name)
		}
		sim := Similarity(m.key, name)
		contains := strings.Contains(strings.ToLower(name), m.lowerKey)
		if !contains && (m.accuracy.isExact() || sim < float64(m.accuracy)) {
			continue
		}
		s := sim * fn.facet.multiplier()
		if !found || s > best.Score {
			best = Match{Facet: fn.facet, Name: fn.name, Score: s}
			found = true
		}
	}
	return best, found
}

func flatten(score, exp float64) float64 {
	return math.Pow(score, exp)
}

// normalizeKey turns dotted and hash-separated keys into slash paths.
func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	return strings.NewReplacer(".", "/", "#", "/").Replace(key)
}

const wildcard = "*"
