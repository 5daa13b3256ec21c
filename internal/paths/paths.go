package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CacheSuffix is the cache file extension. Bump it whenever the binary cache
// layout changes so old files turn into misses instead of decode errors.
const CacheSuffix = ".mdxcache2"

// IndexFileName is the sqlite cache index inside the cache directory.
const IndexFileName = "index.db"

// SanitizeSegment makes a namespace or version usable as a file name segment.
// Path separators and anything outside [A-Za-z0-9._+-] become '_'.
func SanitizeSegment(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '+' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "." || out == ".." {
		return strings.Repeat("_", len(out))
	}
	return out
}

// CacheFileName returns <namespace>/<version>-<cacheID><suffix>, relative to the cache dir.
func CacheFileName(namespace, version, cacheID string) string {
	return filepath.Join(SanitizeSegment(namespace), SanitizeSegment(version)+"-"+cacheID+CacheSuffix)
}

// IsCacheFile reports whether name carries the current cache suffix.
func IsCacheFile(name string) bool {
	return strings.HasSuffix(name, CacheSuffix)
}

// EnsureDir creates dir (and parents) if needed and returns it.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// EnigmaClassName derives the class name an Enigma file describes from its
// path inside a mappings tree: "net/minecraft/Foo.mapping" -> "net/minecraft/Foo".
func EnigmaClassName(relPath string) string {
	p := NormalizePath(relPath)
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, ".mapping")
}
