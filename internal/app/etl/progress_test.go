package etl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestProgressLogAppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code_log.txt")
	p := NewProgressLog(path, zap.NewNop())

	stamps := []time.Time{
		time.Date(2023, time.September, 8, 9, 16, 35, 0, time.Local),
		time.Date(2023, time.September, 8, 9, 16, 36, 0, time.Local),
	}
	calls := 0
	p.now = func() time.Time {
		ts := stamps[calls]
		calls++
		return ts
	}

	if err := p.Log(msgPreliminaries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Log(msgExtracted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	want := "2023-Sep-08-09:16:35 : Preliminaries complete. Initiating ETL process\n" +
		"2023-Sep-08-09:16:36 : Data extraction complete. Initiating Transformation process\n"
	if string(got) != want {
		t.Errorf("expected log\n%q\ngot\n%q", want, string(got))
	}
}

func TestProgressLogKeepsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code_log.txt")
	if err := os.WriteFile(path, []byte("earlier run\n"), 0o644); err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}

	p := NewProgressLog(path, zap.NewNop())
	if err := p.Log(msgComplete); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if len(got) <= len("earlier run\n") || string(got[:len("earlier run\n")]) != "earlier run\n" {
		t.Errorf("expected prior content to be preserved, got %q", string(got))
	}
}

func TestProgressLogFailsOnUnwritablePath(t *testing.T) {
	p := NewProgressLog(filepath.Join(t.TempDir(), "missing", "code_log.txt"), zap.NewNop())

	if err := p.Log(msgPreliminaries); err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}
