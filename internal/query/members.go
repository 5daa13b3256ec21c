package query

import (
	"context"
	"sort"
	"strings"

	"mapdex/internal/mappings"
)

// memberKeys splits "owner/name" at the last separator. An unqualified key
// leaves the owner unconstrained.
func memberKeys(key string) (classKey, memberKey string) {
	i := strings.LastIndexByte(key, '/')
	if i < 0 {
		return "", key
	}
	classKey, memberKey = key[:i], key[i+1:]
	if memberKey == "" {
		memberKey = wildcard
	}
	return classKey, memberKey
}

type ownerHit struct {
	class *mappings.Class
	match *Match
}

func queryMembers[M any](
	ctx context.Context,
	qc QueryContext,
	members func(*mappings.Class) []M,
	member func(M) *mappings.Member,
) (*QueryResult[MemberHit[M]], error) {
	m, err := qc.load(ctx)
	if err != nil {
		return nil, err
	}
	accuracy := qc.accuracy()
	classKey, memberKey := memberKeys(normalizeKey(qc.SearchKey))
	classWild := classKey == "" || classKey == wildcard
	memberWild := memberKey == wildcard

	var owners []ownerHit
	if classWild {
		for _, c := range m.SortedClasses() {
			owners = append(owners, ownerHit{class: c})
		}
	} else {
		mt := newMatcher(classKey, accuracy, isQualified(classKey))
		for _, c := range m.SortedClasses() {
			if match, ok := mt.score(&c.Entry); ok {
				owners = append(owners, ownerHit{class: c, match: &match})
			}
		}
	}

	var mt *matcher
	if !memberWild {
		mt = newMatcher(memberKey, accuracy, true)
	}
	seen := make(map[*mappings.Member]bool)
	out := &QueryResult[MemberHit[M]]{Metadata: m.Metadata()}
	for _, owner := range owners {
		for _, mem := range members(owner.class) {
			base := member(mem)
			if seen[base] {
				continue
			}
			hit := MemberHit[M]{Owner: owner.class, Member: mem, OwnerMatch: owner.match}
			if mt != nil {
				match, ok := mt.score(&base.Entry)
				if !ok {
					continue
				}
				hit.Match = &match
			}
			seen[base] = true
			out.Results = append(out.Results, ResultHolder[MemberHit[M]]{
				Value: hit,
				Score: memberScore(hit.OwnerMatch, hit.Match, classWild, memberWild),
			})
		}
	}

	less := func(a, b MemberHit[M]) bool {
		ao, bo := a.Owner.OptimumName(), b.Owner.OptimumName()
		if ao != bo {
			return ao < bo
		}
		am, bm := member(a.Member), member(b.Member)
		if am.IntermediaryName != bm.IntermediaryName {
			return am.IntermediaryName < bm.IntermediaryName
		}
		return am.IntermediaryDesc < bm.IntermediaryDesc
	}

	if classWild && memberWild {
		sort.SliceStable(out.Results, func(i, j int) bool {
			return less(out.Results[i].Value, out.Results[j].Value)
		})
		for i := range out.Results {
			out.Results[i].Score = 1 - float64(i)*epsilon
		}
	} else {
		sort.SliceStable(out.Results, func(i, j int) bool {
			a, b := out.Results[i], out.Results[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return less(a.Value, b.Value)
		})
	}
	out.Results = limit(out.Results, qc.Limit)
	return out, nil
}

func memberScore(owner, member *Match, classWild, memberWild bool) float64 {
	switch {
	case classWild && memberWild:
		return 1
	case memberWild:
		return flatten(owner.Score, 0.6)
	case !classWild:
		return member.Score * flatten(owner.Score, 0.6)
	default:
		return member.Score
	}
}
