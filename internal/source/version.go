package source

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed, comparable game version.
type Version struct {
	Raw       string
	canonical string
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than o.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical, o.canonical)
}

func (v Version) String() string { return v.Raw }

// VersionParser turns version strings into comparable versions. Strings it
// cannot order (snapshots like 23w13a) are rejected.
type VersionParser interface {
	TryParseVersion(s string) (Version, bool)
}

// SemverParser orders release versions as semantic versions: "1.20" is
// v1.20.0 and "1.20.1-pre2" sorts before "1.20.1".
type SemverParser struct{}

// TryParseVersion parses s, reporting false for anything without a numeric
// major.minor[.patch] core.
func (SemverParser) TryParseVersion(s string) (Version, bool) {
	raw := s
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	if s == "" {
		return Version{}, false
	}

	core, rest := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, rest = s[:i], s[i:]
	}

	parts := strings.Split(core, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, false
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return Version{}, false
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	canonical := "v" + strings.Join(parts, ".") + rest
	if !semver.IsValid(canonical) {
		return Version{}, false
	}
	return Version{Raw: raw, canonical: semver.Canonical(canonical)}, true
}

// Latest returns the newest version p can parse, or false when none parse.
func Latest(p VersionParser, versions []string) (string, bool) {
	var best Version
	found := false
	for _, s := range versions {
		v, ok := p.TryParseVersion(s)
		if !ok {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best, found = v, true
		}
	}
	return best.Raw, found
}

// SortNewestFirst orders versions newest first. Unparseable versions keep
// their relative order after the parseable ones.
func SortNewestFirst(p VersionParser, versions []string) []string {
	type item struct {
		raw string
		v   Version
		ok  bool
	}
	items := make([]item, len(versions))
	for i, s := range versions {
		v, ok := p.TryParseVersion(s)
		items[i] = item{s, v, ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.v.Compare(b.v) > 0
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.raw
	}
	return out
}
