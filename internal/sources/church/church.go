// Package church fetches the parish calendar from the national church API
// and transforms it into canonical events, enriching descriptions with
// resolved street addresses.
package church

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/svangsta/eventfeed/internal/config"
	"github.com/svangsta/eventfeed/internal/dates"
	"github.com/svangsta/eventfeed/internal/model"
	"github.com/svangsta/eventfeed/internal/places"
	"github.com/svangsta/eventfeed/internal/sources"
	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

const (
	sourceName      = "church"
	defaultLocation = "Svängsta kyrka"
	organizer       = "Svängsta kyrka"
	organizerLink   = "https://www.svenskakyrkan.se/asarum-ringamala"
	eventLinkBase   = "https://www.svenskakyrkan.se/kalender?eventId="
)

// Source implements sources.Source against the calendar search API.
type Source struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	ownerID  string
	resolver *places.Resolver
	log      logger.Logger
	metrics  *metrics.Manager
}

// New constructs the church source.
func New(cfg config.ChurchConfig, resolver *places.Resolver, opts ...Option) *Source {
	s := &Source{
		client:   &http.Client{Timeout: 30 * time.Second},
		apiURL:   cfg.APIURL,
		apiKey:   cfg.APIKey,
		ownerID:  cfg.OwnerID,
		resolver: resolver,
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

func (s *Source) Prefix() string { return sources.ChurchPrefix }

// Events fetches the owner's calendar from today onward and transforms it.
func (s *Source) Events(ctx context.Context, now time.Time) ([]model.Event, error) {
	raw, err := s.fetch(ctx, now)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "fetched church events", logger.Int("count", len(raw)))
	s.metrics.AddFetched(sourceName, len(raw))

	events := s.transform(ctx, raw, now)
	s.metrics.AddTransformed(sourceName, len(events))
	return events, nil
}

// rawEvent is the API's native record shape, before transformation.
type rawEvent struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Description string      `json:"description"`
	Place       *rawPlace   `json:"place"`
}

type rawPlace struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type envelope struct {
	Result []rawEvent `json:"result"`
}

func (s *Source) fetch(ctx context.Context, now time.Time) ([]rawEvent, error) {
	form := url.Values{}
	form.Set("access", "external")
	form.Set("expand", "place,owner")
	form.Set("owner_id", s.ownerID)
	form.Set("from", dates.Midnight(now).UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build church request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("church API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: church API returned %d", ErrHTTPStatus, resp.StatusCode)
	}

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode church response: %w", err)
	}
	return body.Result, nil
}

func (s *Source) transform(ctx context.Context, raw []rawEvent, now time.Time) []model.Event {
	// Resolve each distinct place once, in encounter order. The resolver
	// throttles between lookups, so this loop stays strictly sequential.
	addresses := make(map[string]string)
	if s.resolver != nil {
		for _, r := range raw {
			if r.Place == nil || r.Place.ID.String() == "" {
				continue
			}
			id := r.Place.ID.String()
			if _, seen := addresses[id]; seen {
				continue
			}
			addr, _ := s.resolver.Resolve(ctx, id)
			addresses[id] = addr
		}
	}

	today := dates.DayString(now)
	events := make([]model.Event, 0, len(raw))
	for _, r := range raw {
		description := r.Description
		location := defaultLocation
		if r.Place != nil {
			if addr := addresses[r.Place.ID.String()]; addr != "" {
				if description != "" {
					description = description + "\n\nAdress: " + addr
				} else {
					description = "Adress: " + addr
				}
			}
			if r.Place.Name != "" {
				location = r.Place.Name
			}
		}

		event := model.Event{
			ID:            sources.ChurchPrefix + r.ID.String(),
			Title:         r.Title,
			StartDate:     dates.Naive(r.Start),
			EndDate:       dates.Naive(r.End),
			Location:      location,
			Description:   description,
			Organizer:     organizer,
			OrganizerLink: organizerLink,
			Link:          eventLinkBase + r.ID.String(),
		}
		// The API is queried from today onward, but stale entries do turn
		// up; only the merge step may carry past events forward.
		if event.StartDate < today {
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate < events[j].StartDate
	})
	return events
}
