// Package source provides the collaborators the loader needs to get at
// mapping bytes: a fetcher for local files, a ZIP enumerator, a comparable
// version parser and a small XML element accessor for maven metadata.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// MaxSourceSize caps how much a single fetch may return.
const MaxSourceSize = 512 << 20

// Fetcher returns the bytes behind a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// LocalFetcher reads locations as file paths relative to Root. Files ending
// in .gz are decompressed.
type LocalFetcher struct {
	Root string
}

// NewLocalFetcher returns a fetcher rooted at root.
func NewLocalFetcher(root string) *LocalFetcher {
	return &LocalFetcher{Root: root}
}

// Resolve returns the absolute path of location.
func (f *LocalFetcher) Resolve(location string) string {
	if filepath.IsAbs(location) || f.Root == "" {
		return location
	}
	return filepath.Join(f.Root, location)
}

// Exists reports whether location names an existing file or directory.
func (f *LocalFetcher) Exists(location string) bool {
	_, err := os.Stat(f.Resolve(location))
	return err == nil
}

// Fetch reads the file at location.
func (f *LocalFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.Resolve(location))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	if len(data) > MaxSourceSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", location, MaxSourceSize)
	}

	if strings.HasSuffix(location, ".gz") {
		return Gunzip(data)
	}
	return data, nil
}

// Gunzip decompresses a gzip stream.
func Gunzip(data []byte) ([]byte, error) {
	gzipReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	out, err := io.ReadAll(io.LimitReader(gzipReader, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	if len(out) > MaxSourceSize {
		return nil, fmt.Errorf("decompressed data exceeds %d bytes", MaxSourceSize)
	}
	return out, nil
}

// ForEachFile walks the directory at location and calls fn with the slash
// separated relative path and contents of every regular file, in lexical order.
func (f *LocalFetcher) ForEachFile(ctx context.Context, location string, fn func(rel string, data []byte) error) error {
	root := f.Resolve(location)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), data)
	})
}
