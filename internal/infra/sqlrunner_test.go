package infra

import (
	"strings"
	"testing"
)

func TestExtractMarkerStripsTagLine(t *testing.T) {
	query := "--sql 12345678-1234-1234-1234-123456789abc\nselect 1;"

	marker, trimmed, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker returned error: %v", err)
	}
	if marker != "12345678-1234-1234-1234-123456789abc" {
		t.Fatalf("marker %q", marker)
	}
	if strings.Contains(trimmed, "--sql") {
		t.Fatalf("marker leaked into statement: %q", trimmed)
	}
}

func TestExtractMarkerRejectsUntaggedSQL(t *testing.T) {
	if _, _, err := extractMarker("select 1;"); err == nil {
		t.Fatal("expected error for missing marker")
	}
	if _, _, err := extractMarker("--sql not-a-uuid\nselect 1;"); err == nil {
		t.Fatal("expected error for malformed marker")
	}
}
