package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrStop ends ForEachEntry early without an error.
var ErrStop = errors.New("stop iteration")

// ForEachEntry calls fn with the path and contents of every file in a ZIP
// archive, in path order. Directories are skipped. Returning ErrStop from fn
// ends the walk.
func ForEachEntry(archive []byte, fn func(path string, data []byte) error) error {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	for _, f := range files {
		if f.UncompressedSize64 > MaxSourceSize {
			return fmt.Errorf("zip entry %s exceeds %d bytes", f.Name, MaxSourceSize)
		}
		data, err := readZipFile(f)
		if err != nil {
			return err
		}
		if err := fn(f.Name, data); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// ReadEntry returns the contents of one archive member.
func ReadEntry(archive []byte, name string) ([]byte, error) {
	var found []byte
	err := ForEachEntry(archive, func(path string, data []byte) error {
		if path == name {
			found = data
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("zip entry %s not found", name)
	}
	return found, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	return data, nil
}
