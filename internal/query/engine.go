// Package query searches a mappings container for classes, fields and
// methods by any of their names, ranking hits by string similarity.
//
// Queries only read the container, so several may run against one loaded
// container at the same time.
package query

import (
	"context"
	"sort"
	"strings"

	mderrors "mapdex/internal/errors"
	"mapdex/internal/mappings"
)

// Supplier produces the container a query runs against.
type Supplier func(ctx context.Context) (*mappings.Mappings, error)

// Static wraps an already loaded container.
func Static(m *mappings.Mappings) Supplier {
	return func(context.Context) (*mappings.Mappings, error) { return m, nil }
}

// QueryContext describes one search.
type QueryContext struct {
	Provider  Supplier
	SearchKey string
	Accuracy  Accuracy
	// Limit caps the results; zero or less means unlimited.
	Limit int
}

// ResultHolder pairs a hit with its score.
type ResultHolder[T any] struct {
	Value T       `json:"value" yaml:"value"`
	Score float64 `json:"score" yaml:"score"`
}

// QueryResult carries the container metadata alongside the ranked hits, so
// results do not keep the class map alive.
type QueryResult[T any] struct {
	Metadata mappings.Metadata `json:"metadata" yaml:"metadata"`
	Results  []ResultHolder[T] `json:"results" yaml:"results"`
}

// ClassHit is a matched class.
type ClassHit struct {
	Class *mappings.Class `json:"class" yaml:"class"`
	Match *Match          `json:"match,omitempty" yaml:"match,omitempty"`
}

// MemberHit is a matched field or method with its owner. OwnerMatch is nil
// when the owner was not constrained; Match is nil for a wildcard member key.
type MemberHit[M any] struct {
	Owner      *mappings.Class `json:"owner" yaml:"owner"`
	Member     M               `json:"member" yaml:"member"`
	OwnerMatch *Match          `json:"ownerMatch,omitempty" yaml:"ownerMatch,omitempty"`
	Match      *Match          `json:"match,omitempty" yaml:"match,omitempty"`
}

func (qc QueryContext) accuracy() Accuracy {
	if qc.Accuracy <= 0 || qc.Accuracy > Exact {
		return Exact
	}
	return qc.Accuracy
}

func (qc QueryContext) load(ctx context.Context) (*mappings.Mappings, error) {
	if qc.Provider == nil {
		return nil, mderrors.New(mderrors.InternalError, "query has no mappings provider", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return qc.Provider(ctx)
}

func limit[T any](results []ResultHolder[T], n int) []ResultHolder[T] {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

// QueryClasses ranks the classes matching qc.SearchKey. The key "*" lists
// every class in intermediary name order. An empty result is not an error;
// see ErrorNoResultsFound.
func QueryClasses(ctx context.Context, qc QueryContext) (*QueryResult[ClassHit], error) {
	m, err := qc.load(ctx)
	if err != nil {
		return nil, err
	}
	key := normalizeKey(qc.SearchKey)
	out := &QueryResult[ClassHit]{Metadata: m.Metadata()}

	if key == wildcard {
		for i, c := range m.SortedClasses() {
			out.Results = append(out.Results, ResultHolder[ClassHit]{
				Value: ClassHit{Class: c},
				Score: 1 - float64(i)*epsilon,
			})
		}
		out.Results = limit(out.Results, qc.Limit)
		return out, nil
	}

	mt := newMatcher(key, qc.accuracy(), isQualified(key))
	for _, c := range m.Classes {
		match, ok := mt.score(&c.Entry)
		if !ok {
			continue
		}
		out.Results = append(out.Results, ResultHolder[ClassHit]{
			Value: ClassHit{Class: c, Match: &match},
			Score: flatten(match.Score, 0.9),
		})
	}
	sort.Slice(out.Results, func(i, j int) bool {
		a, b := out.Results[i], out.Results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		an := mappings.SimpleName(a.Value.Class.OptimumName())
		bn := mappings.SimpleName(b.Value.Class.OptimumName())
		if an != bn {
			return an < bn
		}
		return a.Value.Class.IntermediaryName < b.Value.Class.IntermediaryName
	})
	out.Results = limit(out.Results, qc.Limit)
	return out, nil
}

// QueryFields ranks fields. A key of the form "owner/name" first narrows the
// owning classes by "owner"; either part may be "*".
func QueryFields(ctx context.Context, qc QueryContext) (*QueryResult[MemberHit[*mappings.Field]], error) {
	return queryMembers(ctx, qc, func(c *mappings.Class) []*mappings.Field { return c.Fields },
		func(f *mappings.Field) *mappings.Member { return &f.Member })
}

// QueryMethods ranks methods the same way QueryFields ranks fields.
func QueryMethods(ctx context.Context, qc QueryContext) (*QueryResult[MemberHit[*mappings.Method]], error) {
	return queryMembers(ctx, qc, func(c *mappings.Class) []*mappings.Method { return c.Methods },
		func(m *mappings.Method) *mappings.Member { return &m.Member })
}

func isQualified(key string) bool { return strings.ContainsRune(key, '/') }
