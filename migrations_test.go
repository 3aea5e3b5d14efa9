package main

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// Money and percent columns hold exact decimals as text, like the gorm
// models. A scaled NUMERIC would round line taxes on write.
func TestMigrationsKeepExactDecimals(t *testing.T) {
	files, err := filepath.Glob("migrations/*/*.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) < 2 {
		t.Fatalf("found %d migration files", len(files))
	}
	scaled := regexp.MustCompile(`(?i)\b(numeric|decimal)\s*\(\s*\d+\s*,\s*\d+\s*\)`)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		if m := scaled.Find(data); m != nil {
			t.Errorf("%s: scaled column type %q", f, m)
		}
	}
}
