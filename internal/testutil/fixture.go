// Package testutil provides fixtures, golden files and a recording visitor
// for mapping parser and writer tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixturesRoot returns the absolute path to testdata/mappings/.
func FixturesRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	root := filepath.Join(projectRoot, "testdata", "mappings")

	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", root)
	}
	return root
}

// FixturePath returns the path of a fixture file under testdata/mappings/.
func FixturePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(FixturesRoot(t), name)
}

// ReadFixture loads a fixture file, failing the test on error.
func ReadFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(FixturePath(t, name))
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", name, err)
	}
	return data
}
