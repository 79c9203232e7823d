package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/tracks"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	CrossSearch
	Finished
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case CrossSearch:
		return "cross_search"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchSourceUpdate(from tracks.Service) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s playlist...", from.Label()),
	}
}

func foundSourceUpdate(from tracks.Service, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks on %s", total, from.Label()),
	}
}

func crossSearchUpdate(step, total int, title string, to tracks.Service, outcome string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CrossSearch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s: %s on %s", title, outcome, to.Label()),
	}
}

func finishedUpdate(result *BackfillResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Finished,
		Step:  result.Total,
		Total: result.Total,
		Message: fmt.Sprintf("%d added, %d already present, %d not found, %d failed",
			result.Added, result.Existing, result.NotFound, result.Failed),
		Data: result,
	}
}
