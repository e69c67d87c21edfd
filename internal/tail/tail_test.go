package tail

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		t.Fatal(err)
	}
}

func TestTailerStartsAtEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ekos-2025-01-15T20-30-00.analyze")
	appendTo(t, path, "old line 1\nold line 2\n")

	tl, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	lines, err := tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("pre-existing lines must not be reported, got %v", lines)
	}

	appendTo(t, path, "new line\n")
	lines, err = tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "new line" {
		t.Fatalf("lines = %v, want [new line]", lines)
	}
}

func TestTailerBuffersPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.analyze")
	tl, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	appendTo(t, path, "CaptureComplete,705,600")
	lines, err := tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("partial line must be held back, got %v", lines)
	}

	appendTo(t, path, ",L,2.1,a.fits\nTemperature,800,4.5\n")
	lines, err = tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"CaptureComplete,705,600,L,2.1,a.fits", "Temperature,800,4.5"}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestTailerMissingFileIsQuiet(t *testing.T) {
	tl, err := New(filepath.Join(t.TempDir(), "absent.analyze"))
	if err != nil {
		t.Fatal(err)
	}
	lines, err := tl.ReadNewLines()
	if err != nil || lines != nil {
		t.Fatalf("missing file should yield nothing, got %v, %v", lines, err)
	}
}

func TestTailerHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.analyze")
	appendTo(t, path, "line 1\nline 2\n")
	tl, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("after truncation lines = %v, want [fresh]", lines)
	}
}

func TestSwitchTo(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "a.analyze")
	newPath := filepath.Join(dir, "b.analyze")
	appendTo(t, oldPath, "old\n")
	appendTo(t, newPath, "AnalyzeStartTime,2025-01-15 20:30:00,CET\nheader\n")

	tl, err := New(oldPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := tl.SwitchTo(newPath, true); err != nil {
		t.Fatal(err)
	}
	lines, err := tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("fromBeginning switch should replay the file, got %v", lines)
	}

	if err := tl.SwitchTo(oldPath, false); err != nil {
		t.Fatal(err)
	}
	lines, err = tl.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("end-positioned switch must not replay, got %v", lines)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for _, n := range []string{
		"ekos-2025-01-14T21-00-00.analyze",
		"ekos-2025-01-15T20-30-00.analyze",
		"notes.txt",
	} {
		path := filepath.Join(dir, n)
		appendTo(t, path, "")
		if err := os.Chtimes(path, now, now); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := FindLatest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(latest) != "ekos-2025-01-15T20-30-00.analyze" {
		t.Errorf("latest = %s", latest)
	}
}

func TestFindLatestPrefersRecentlyModified(t *testing.T) {
	// An older-named log that is still being appended to beats a stale
	// newer-named one.
	dir := t.TempDir()
	active := filepath.Join(dir, "ekos-2025-01-14T20-00-00.analyze")
	stale := filepath.Join(dir, "ekos-2025-01-15T20-00-00.analyze")
	appendTo(t, active, "GuideState,10,Guiding\n")
	appendTo(t, stale, "")

	now := time.Now()
	if err := os.Chtimes(stale, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(active, now, now); err != nil {
		t.Fatal(err)
	}

	latest, err := FindLatest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if latest != active {
		t.Errorf("latest = %s, want the freshly written %s", latest, active)
	}
}

func TestFindLatestEmpty(t *testing.T) {
	_, err := FindLatest(t.TempDir())
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("err = %v, want ErrNoFile", err)
	}
}
