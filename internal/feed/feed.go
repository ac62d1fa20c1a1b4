// Package feed loads, merges and persists the aggregated event feed: a
// single JSON array sorted ascending by start date.
//
// The merge rules are the system's durability contract. Past events are
// carried forward verbatim from the previous feed, they are never
// re-fetched. Future events owned by a machine-ingested source are replaced
// wholesale by that source's fresh fetch; future events with any other id
// prefix belong to an external curation process and pass through untouched.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/svangsta/eventfeed/internal/model"
)

// Load reads the previously persisted feed. A missing file is an empty
// feed; a file that exists but cannot be parsed is fatal for the run, so
// that data loss is never masked.
func Load(path string) ([]model.Event, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", path, err)
	}

	var events []model.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptFeed, path, err)
	}
	return events, nil
}

// Result is the merged feed plus the retention counts for reporting.
type Result struct {
	Events      []model.Event
	PastKept    int
	ForeignKept int
}

// Merge combines the previous feed with freshly fetched events. today is
// the cutoff date in the feed's date layout; ownedPrefixes are the id
// prefixes whose future entries the fresh set replaces. Previous entries
// with no comparable start date are discarded along with owned futures.
func Merge(previous, fresh []model.Event, ownedPrefixes []string, today string) Result {
	merged := make([]model.Event, 0, len(previous)+len(fresh))
	res := Result{}

	for _, event := range previous {
		switch {
		case event.StartDate != "" && event.StartDate < today:
			merged = append(merged, event)
			res.PastKept++
		case event.StartDate >= today && event.StartDate != "" && !owned(event.ID, ownedPrefixes):
			merged = append(merged, event)
			res.ForeignKept++
		}
		// Owned future entries fall through: the fresh fetch is truth for
		// them, including their absence.
	}

	merged = append(merged, fresh...)
	SortByStart(merged)
	res.Events = merged
	return res
}

// SortByStart sorts events ascending by start date in place. The fixed
// zero-padded layout makes string order chronological; the sort is stable
// so same-day events keep their source order.
func SortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate < events[j].StartDate
	})
}

// Save persists events as the complete replacement feed. The document is
// written to a temporary file and renamed into place so a failed run never
// leaves a partial feed behind.
func Save(path string, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".events-*.json")
	if err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace feed: %w", err)
	}
	return nil
}

func owned(id string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}
