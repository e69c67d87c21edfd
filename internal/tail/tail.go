package tail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoFile is returned by FindLatest when the directory holds no session logs.
var ErrNoFile = errors.New("no session log found")

// Tailer reads complete new lines from a growing log file across repeated
// polls. It remembers its byte offset between calls and buffers any partial
// trailing line until the writer finishes it.
type Tailer struct {
	path    string
	offset  int64
	partial []byte
}

// New returns a Tailer positioned at the end of path, so only lines written
// after this call are reported. The file does not need to exist yet.
func New(path string) (*Tailer, error) {
	t := &Tailer{path: path}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to stat session log: %w", err)
	}
	t.offset = info.Size()
	return t, nil
}

// Path returns the file currently being tailed.
func (t *Tailer) Path() string { return t.path }

// SwitchTo retargets the tailer at a different file, discarding any buffered
// partial line. With fromBeginning the whole file is replayed on the next
// poll; otherwise reading starts at its current end.
func (t *Tailer) SwitchTo(path string, fromBeginning bool) error {
	t.path = path
	t.offset = 0
	t.partial = nil
	if fromBeginning {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat session log: %w", err)
	}
	t.offset = info.Size()
	return nil
}

// ReadNewLines returns the complete lines appended since the previous call.
// A trailing line without a newline stays buffered. If the file shrank, the
// writer rotated or truncated it, so reading restarts from the beginning.
func (t *Tailer) ReadNewLines() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat session log: %w", err)
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if info.Size() == t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek session log: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	t.partial = nil

	var lines []string
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(buf[:idx]), "\r")
		lines = append(lines, line)
		buf = buf[idx+1:]
	}
	if len(buf) > 0 {
		t.partial = append([]byte(nil), buf...)
	}
	return lines, nil
}

// FindLatest returns the most-recently-modified .analyze file in dir.
// Ekos appends to the current session log, so mtime identifies the live
// file even when an older-named log is the one being written. Equal mtimes
// fall to the later name. Returns ErrNoFile when none exist.
func FindLatest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.analyze"))
	if err != nil {
		return "", fmt.Errorf("failed to scan session log directory: %w", err)
	}
	sort.Strings(matches)

	var latest string
	var latestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || !info.ModTime().Before(latestMod) {
			latest, latestMod = path, info.ModTime()
		}
	}
	if latest == "" {
		return "", ErrNoFile
	}
	return latest, nil
}
