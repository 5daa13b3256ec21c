package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./internal/format -run TestWriter -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// GoldenPath returns testdata/mappings/expected/<name>.
func GoldenPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(FixturesRoot(t), "expected", name)
}

// CompareGolden compares got against the golden file, failing with a diff on mismatch.
// If -update flag is set, updates the golden file instead of comparing.
func CompareGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	goldenPath := GoldenPath(t, name)

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			t.Fatalf("Failed to create expected directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(got), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(got, expected) {
		diff := unifiedDiff(string(expected), string(got), goldenPath)
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, diff, t.Name())
	}
}

// unifiedDiff produces a line-by-line diff between two strings.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer

	expectedLines := strings.Split(expected, "\n")
	gotLines := strings.Split(got, "\n")

	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	n := len(expectedLines)
	if len(gotLines) > n {
		n = len(gotLines)
	}

	for i := 0; i < n; i++ {
		var expLine, gotLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(gotLines) {
			gotLine = gotLines[i]
		}
		if expLine == gotLine {
			continue
		}
		fmt.Fprintf(&buf, "@@ line %d @@\n", i+1)
		if i < len(expectedLines) {
			buf.WriteString("-" + expLine + "\n")
		}
		if i < len(gotLines) {
			buf.WriteString("+" + gotLine + "\n")
		}
	}
	return buf.String()
}
