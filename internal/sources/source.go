// Package sources defines the contract every event origin implements and
// the id prefixes the pipeline owns.
package sources

import (
	"context"
	"time"

	"github.com/svangsta/eventfeed/internal/model"
)

// Source is one external origin of event data. Events performs the
// source's fetch and transformation in one call and returns canonical
// future events sorted ascending by start date. now anchors the "today"
// cutoff and any relative date inference, keeping implementations
// deterministic under test.
//
// A returned error means the source contributes nothing this run; it must
// never abort the run as a whole.
type Source interface {
	Name() string
	Prefix() string
	Events(ctx context.Context, now time.Time) ([]model.Event, error)
}

// Id prefixes of the machine-ingested sources. An event whose id carries
// one of these is owned by that source: the source is truth for its future
// entries, which are replaced wholesale on every run. Any other prefix
// belongs to an external curation process this pipeline never writes to.
const (
	ChurchPrefix = "church-"
	GardenPrefix = "garden-"
	EsportPrefix = "esport-"
)

// Prefixes returns the id prefixes of the given sources.
func Prefixes(srcs []Source) []string {
	out := make([]string, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, s.Prefix())
	}
	return out
}
