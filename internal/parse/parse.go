package parse

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/grm/nightwatch/internal/decode"
	"github.com/grm/nightwatch/internal/event"
)

// maxLineBytes bounds a single log line. Autofocus payloads carry full focus
// sweep tables, so the default scanner buffer is too small.
const maxLineBytes = 1 << 20

// ParseFile decodes a whole session log into a Session. A read failure
// partway through still returns the events decoded so far alongside the
// error, so a file truncated mid-write remains usable.
func ParseFile(path string, opts decode.Options) (*event.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	sess, err := ParseReader(f, opts)
	sess.Path = path
	return sess, err
}

// ParseReader decodes session log lines from r. The returned Session is
// never nil; on a read error it holds everything decoded before the failure.
func ParseReader(r io.Reader, opts decode.Options) (*event.Session, error) {
	dec := decode.New(opts)
	sess := &event.Session{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		sess.Events = append(sess.Events, dec.Decode(scanner.Text())...)
	}

	ctx := dec.Context()
	sess.StartTime = ctx.SessionStartTime
	sess.Timezone = ctx.SessionTimezone
	sess.KStarsVersion = ctx.KStarsVersion

	if err := scanner.Err(); err != nil {
		return sess, fmt.Errorf("failed to read session log: %w", err)
	}
	return sess, nil
}
