// Package eventlog keeps file records of what the bot received and what users asked for.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Recorder writes each event to its own file named by a strictly increasing nanosecond timestamp.
type Recorder struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	last int64
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir, now: time.Now}
}

// Record writes raw to a new file, or the JSON encoding of v when raw is empty. It returns the file path.
func (r *Recorder) Record(raw []byte, v any) (string, error) {
	data := raw
	if len(data) == 0 {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return "", fmt.Errorf("encoding event: %w", err)
		}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating event dir: %w", err)
	}

	path := filepath.Join(r.dir, strconv.FormatInt(r.next(), 10)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing event: %w", err)
	}
	return path, nil
}

func (r *Recorder) next() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := r.now().UnixNano()
	if stamp <= r.last {
		stamp = r.last + 1
	}
	r.last = stamp
	return stamp
}

// FeatureLog is the append-only feature request file.
type FeatureLog struct {
	path string
	mu   sync.Mutex
}

func NewFeatureLog(path string) *FeatureLog {
	return &FeatureLog{path: path}
}

// Append writes one "<username>: <text>" line.
func (l *FeatureLog) Append(username, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating feature log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening feature log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s: %s\n", username, text); err != nil {
		return fmt.Errorf("writing feature log: %w", err)
	}
	return nil
}
