// package formatter renders playlist listings for the chat and the terminal
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Listing is the content of one service playlist.
type Listing struct {
	Service    string // Display name, e.g. "Spotify"
	PlaylistID string
	Entries    []services.Entry
}

// Formats accepted by [Write].
const (
	FormatSnippet = "snippet"
	FormatText    = "txt"
	FormatCSV     = "csv"
	FormatJSON    = "json"
)

// Snippet renders the listing posted in answer to a list command: a dashed frame around
// "| <SERVICE> PLAYLIST CONTENTS (<n>) TRACKS |" followed by one title per line.
func Snippet(l Listing) string {
	title := fmt.Sprintf("| %s PLAYLIST CONTENTS (%d) TRACKS |", strings.ToUpper(l.Service), len(l.Entries))
	rule := strings.Repeat("-", utf8.RuneCountInString(title))

	var b strings.Builder
	b.WriteString(rule + "\n" + title + "\n" + rule)
	for _, e := range l.Entries {
		b.WriteString("\n" + e.Title)
	}
	return b.String()
}

// SnippetFilename names the uploaded snippet, e.g. "Spotify_Playlist".
func SnippetFilename(l Listing) string {
	return strings.ReplaceAll(l.Service, " ", "_") + "_Playlist"
}

// ExportToCSV converts a listing to CSV with columns: Position, ID, Title
func ExportToCSV(l Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "Title"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i, e := range l.Entries {
		if err := writer.Write([]string{fmt.Sprint(i + 1), e.ID, e.Title}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToText converts a listing to a numbered plain text list.
func ExportToText(l Listing) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Playlist: %s (%s)\n", l.PlaylistID, l.Service)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(l.Entries))
	for i, e := range l.Entries {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, e.Title)
	}
	return buf.Bytes()
}

// Write renders l in format to w.
func Write(w io.Writer, l Listing, format string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatSnippet, "":
		data = []byte(Snippet(l) + "\n")
	case FormatText:
		data = ExportToText(l)
	case FormatCSV:
		data, err = ExportToCSV(l)
	case FormatJSON:
		data, err = json.MarshalIndent(l, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}
	return nil
}
