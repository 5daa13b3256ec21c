package storage

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// cacheNamespace seeds name-based cache ids.
var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mapdex:mapping-cache"))

// ContentHash fingerprints mapping source bytes.
func ContentHash(content []byte) uint64 {
	return xxh3.Hash(content)
}

// CacheKey derives the id of a cache file from the namespace, the version and
// the hash of the bytes it was parsed from. Same inputs give the same id, so a
// changed source file naturally misses the old cache.
func CacheKey(namespace, version string, contentHash uint64) string {
	name := namespace + "\x00" + version + "\x00" + strconv.FormatUint(contentHash, 16)
	return uuid.NewSHA1(cacheNamespace, []byte(name)).String()
}
