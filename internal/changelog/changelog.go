// Package changelog finds the newest release notes that have not been announced yet.
//
// A changelog directory holds one text file per release. The file with the lexicographically greatest
// name is the current one. Once posted, the file gets a trailing line reading [Marker] and is never
// posted again.
package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Marker is the last line of a changelog that has been announced.
const Marker = "PRINTED"

// Entry is a changelog waiting to be announced.
type Entry struct {
	Path string
	Text string
}

// Store reads changelogs from a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Pending returns the newest changelog unless it is empty or already marked. A missing directory
// has nothing pending.
func (s *Store) Pending() (*Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading changelog dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	newest := filepath.Join(s.dir, slices.Max(names))
	data, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}

	text := strings.TrimRight(string(data), "\r\n\t ")
	if text == "" || lastLine(text) == Marker {
		return nil, nil
	}
	return &Entry{Path: newest, Text: text}, nil
}

// MarkPrinted appends [Marker] to the entry's file.
func (s *Store) MarkPrinted(e *Entry) error {
	f, err := os.OpenFile(e.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("marking changelog: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("\n" + Marker); err != nil {
		return fmt.Errorf("marking changelog: %w", err)
	}
	return nil
}

// Message renders the entry as a code block.
func (e *Entry) Message() string {
	return "```" + e.Text + "```"
}

func lastLine(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text)
}
