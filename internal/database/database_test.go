package database

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPathOverride(t *testing.T) {
	t.Cleanup(ResetPath)

	path := filepath.Join(t.TempDir(), "dnsm.db")
	SetPath(path)

	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath error: %v", err)
	}
	if got != path {
		t.Fatalf("DefaultPath = %q, want %q", got, path)
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dnsm.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestFormatTime_SortsChronologically(t *testing.T) {
	whole := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	frac := whole.Add(500 * time.Millisecond)

	if !(FormatTime(whole) < FormatTime(frac)) {
		t.Errorf("expected %q < %q", FormatTime(whole), FormatTime(frac))
	}
	if got := ParseTime(FormatTime(frac)); !got.Equal(frac) {
		t.Errorf("ParseTime roundtrip = %v, want %v", got, frac)
	}
}

func TestParseTime_AcceptsRFC3339(t *testing.T) {
	got := ParseTime("2024-05-01T12:00:00+02:00")
	want := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTime = %v, want %v", got, want)
	}
}
