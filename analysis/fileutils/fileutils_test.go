package fileutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	if FileExists(path) {
		t.Fatalf("FileExists=true for missing file")
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(path) {
		t.Fatalf("FileExists=false for existing file")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  hello  ", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Fatalf("max<=0 must disable truncation, got %q", got)
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	t.Parallel()

	// Each rune is 3 bytes; a cut at 4 must back up to the boundary after
	// the first rune instead of splitting the second one.
	if got := Truncate("数据集分析", 4); got != "数…" {
		t.Fatalf("got %q", got)
	}
	for max := 1; max < 16; max++ {
		if got := Truncate("数据集分析", max); !utf8.ValidString(got) {
			t.Fatalf("max=%d produced invalid UTF-8: %q", max, got)
		}
	}
}

func TestWriteJSONFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	v := map[string]any{"a": 1.0, "b": "two"}
	if err := WriteJSONFileAtomic(path, v); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Fatalf("output missing trailing newline")
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["a"] != 1.0 || got["b"] != "two" {
		t.Fatalf("got %v", got)
	}

	// Overwrite replaces the whole file.
	if err := WriteJSONFileAtomic(path, map[string]any{"c": true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(b), `"a"`) {
		t.Fatalf("stale content after overwrite: %s", b)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp_") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestWriteJSONFileAtomic_Unmarshalable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteJSONFileAtomic(path, func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
	if FileExists(path) {
		t.Fatalf("file created despite marshal error")
	}
}
