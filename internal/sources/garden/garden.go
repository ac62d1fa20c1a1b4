// Package garden scrapes the garden society's event listing page. The page
// is a hand-edited blog: dates live in locale-specific free text and times,
// when present at all, are buried in the body copy.
package garden

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/svangsta/eventfeed/internal/config"
	"github.com/svangsta/eventfeed/internal/dates"
	"github.com/svangsta/eventfeed/internal/model"
	"github.com/svangsta/eventfeed/internal/sources"
	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

const (
	sourceName      = "garden"
	defaultLocation = "Svängsta"
	organizer       = "Svängsta Trädgårdsförening"
	organizerLink   = "https://svangstatradgard.se"

	// maxDescription bounds the free-text body carried into the feed.
	maxDescription = 300

	// defaultDuration is assumed when the body names a start time but, as
	// is always the case on this page, no end time.
	defaultDuration = 2 * time.Hour
)

// Source implements sources.Source against the listing page.
type Source struct {
	client  *http.Client
	url     string
	log     logger.Logger
	metrics *metrics.Manager
}

// New constructs the garden source.
func New(cfg config.GardenConfig, opts ...Option) *Source {
	s := &Source{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    cfg.URL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named(sourceName)
	}
	return s
}

func (s *Source) Name() string { return sourceName }

func (s *Source) Prefix() string { return sources.GardenPrefix }

// Events fetches the listing and transforms its entries.
func (s *Source) Events(ctx context.Context, now time.Time) ([]model.Event, error) {
	raw, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "fetched garden entries", logger.Int("count", len(raw)))
	s.metrics.AddFetched(sourceName, len(raw))

	events := s.transform(ctx, raw, now)
	s.metrics.AddTransformed(sourceName, len(events))
	return events, nil
}

// rawEntry is one article of the listing, before transformation.
type rawEntry struct {
	Title    string
	Content  string
	DateText string
	Link     string
}

func (s *Source) fetch(ctx context.Context) ([]rawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build garden request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("garden listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: garden listing returned %d", ErrHTTPStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse garden listing: %w", err)
	}

	var entries []rawEntry
	doc.Find("ol.article-list li").Each(func(_ int, li *goquery.Selection) {
		title := strings.TrimSpace(li.Find("h2 a").First().Text())
		if title == "" {
			return
		}
		link, _ := li.Find("h2 a").First().Attr("href")
		entries = append(entries, rawEntry{
			Title:    title,
			Content:  strings.TrimSpace(li.Find("p").Text()),
			DateText: strings.TrimSpace(li.Find(".meta .date").First().Text()),
			Link:     link,
		})
	})
	return entries, nil
}

func (s *Source) transform(ctx context.Context, raw []rawEntry, now time.Time) []model.Event {
	today := dates.DayString(now)
	events := make([]model.Event, 0, len(raw))
	dropped := 0

	for i, entry := range raw {
		date, ok := dates.ParseSwedish(entry.DateText, now.Year())
		if !ok {
			// Without a date the entry cannot be scheduled at all.
			s.log.Debug(ctx, "dropping garden entry without a recognizable date",
				logger.String("title", entry.Title), logger.String("date_text", entry.DateText))
			dropped++
			continue
		}

		var start, end string
		if clock, ok := dates.FindClock(entry.Content); ok {
			start = date.At(clock)
			end = date.Add(clock, defaultDuration)
		} else {
			start = date.String()
			end = date.String()
		}
		if start < today {
			continue
		}

		link := entry.Link
		if link == "" {
			link = s.url
		}
		events = append(events, model.Event{
			ID:            sources.GardenPrefix + localID(entry.Link, i),
			Title:         entry.Title,
			StartDate:     start,
			EndDate:       end,
			Location:      defaultLocation,
			Description:   truncate(entry.Content, maxDescription),
			Organizer:     organizer,
			OrganizerLink: organizerLink,
			Link:          link,
		})
	}

	s.metrics.AddDropped(sourceName, dropped)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate < events[j].StartDate
	})
	return events
}

// localID derives the source-local id from the last non-empty path segment
// of the detail link, falling back to the entry's position in the list.
func localID(link string, index int) string {
	segments := strings.Split(link, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return strconv.Itoa(index)
}

// truncate caps s at limit runes and trims surrounding whitespace.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return strings.TrimSpace(string(runes))
}
