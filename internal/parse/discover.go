package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Session log filenames embed their start time: ekos-2025-01-15T20-30-00.analyze.
const (
	filePrefix     = "ekos-"
	fileSuffix     = ".analyze"
	fileTimeLayout = "2006-01-02T15-04-05"
)

// FileTimestamp extracts the start time embedded in a session log filename.
func FileTimestamp(path string) (time.Time, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	t, err := time.ParseInLocation(fileTimeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FindAnalyzeFiles returns the session logs in dir whose filename timestamp
// falls within the lookback window ending at now, oldest first. Files whose
// names do not carry a parseable timestamp are skipped.
func FindAnalyzeFiles(dir string, hours float64, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session log directory: %w", err)
	}

	cutoff := now.Add(-time.Duration(hours * float64(time.Hour)))

	type candidate struct {
		path string
		ts   time.Time
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ts, ok := FileTimestamp(path)
		if !ok {
			continue
		}
		if ts.Before(cutoff) || ts.After(now) {
			continue
		}
		found = append(found, candidate{path: path, ts: ts})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ts.Before(found[j].ts) })

	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}
