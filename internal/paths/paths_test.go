package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"yarn", "yarn"},
		{"1.20.1", "1.20.1"},
		{"1.20.1-pre1", "1.20.1-pre1"},
		{"24w14a", "24w14a"},
		{"a/b", "a_b"},
		{"..", "__"},
		{"", "_"},
		{"mojang srg", "mojang_srg"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeSegment(tt.in); got != tt.want {
				t.Errorf("SanitizeSegment(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCacheFileName(t *testing.T) {
	got := CacheFileName("yarn", "1.20.1", "abc")
	want := filepath.Join("yarn", "1.20.1-abc"+CacheSuffix)
	if got != want {
		t.Errorf("CacheFileName() = %q, want %q", got, want)
	}
	if !IsCacheFile(got) {
		t.Error("IsCacheFile should accept CacheFileName output")
	}
	if IsCacheFile("yarn/1.20.1-abc.mdxcache1") {
		t.Error("IsCacheFile should reject old suffixes")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	got, err := EnsureDir(dir)
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("EnsureDir() = %q, want %q", got, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestEnigmaClassName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"net/minecraft/Foo.mapping", "net/minecraft/Foo"},
		{"./Bar.mapping", "Bar"},
		{"Baz", "Baz"},
	}

	for _, tt := range tests {
		if got := EnigmaClassName(tt.in); got != tt.want {
			t.Errorf("EnigmaClassName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
