// Package esport scrapes the esport association's table-based calendar,
// one page per month over a bounded lookahead window.
package esport

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
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
	sourceName      = "esport"
	defaultLocation = "Svängsta Esportförening"
	organizer       = "Svängsta Esportförening"
	organizerLink   = "forening-esport.html"
	siteBase        = "https://www.svangstaesport.se"

	// pageDelay spaces out the per-month page requests.
	pageDelay = 200 * time.Millisecond
)

var (
	activityIDRe = regexp.MustCompile(`/aktivitet/(\d+)`)
	startTimeRe  = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
	endTimeRe    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// Source implements sources.Source against the monthly calendar pages.
type Source struct {
	client      *http.Client
	baseURL     string
	monthsAhead int
	log         logger.Logger
	metrics     *metrics.Manager
}

// New constructs the esport source.
func New(cfg config.EsportConfig, opts ...Option) *Source {
	s := &Source{
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		monthsAhead: cfg.MonthsAhead,
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

func (s *Source) Prefix() string { return sources.EsportPrefix }

// Events fetches the lookahead window's calendar pages and transforms the
// activities they list.
func (s *Source) Events(ctx context.Context, now time.Time) ([]model.Event, error) {
	raw, err := s.fetch(ctx, now)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "fetched esport activities", logger.Int("count", len(raw)))
	s.metrics.AddFetched(sourceName, len(raw))

	events := s.transform(raw, now)
	s.metrics.AddTransformed(sourceName, len(events))
	return events, nil
}

// rawActivity is one calendar row, before transformation. The same
// activity may appear on several monthly pages while it is on display.
type rawActivity struct {
	ID        string
	Title     string
	Team      string
	Location  string
	Day       int
	Month     time.Month
	Year      int
	StartTime string
	EndTime   string
	Link      string
}

func (s *Source) fetch(ctx context.Context, now time.Time) ([]rawActivity, error) {
	var all []rawActivity
	pagesOK := 0

	for i := 0; i < s.monthsAhead; i++ {
		first := time.Date(now.Year(), now.Month()+time.Month(i), 1, 0, 0, 0, 0, now.Location())
		pageURL := fmt.Sprintf("%s/%d/%s", s.baseURL, first.Year(), dates.MonthName(first.Month()))

		if i > 0 {
			if err := sleep(ctx, pageDelay); err != nil {
				return nil, err
			}
		}

		activities, err := s.fetchMonth(ctx, pageURL, first.Year(), first.Month())
		if err != nil {
			// One bad month page must not take down the whole source.
			s.log.Warn(ctx, "skipping calendar page", logger.String("url", pageURL), logger.Error(err))
			continue
		}
		pagesOK++
		all = append(all, activities...)
	}

	if pagesOK == 0 {
		return nil, fmt.Errorf("%w: 0 of %d pages fetched", ErrNoPages, s.monthsAhead)
	}
	return all, nil
}

func (s *Source) fetchMonth(ctx context.Context, pageURL string, year int, month time.Month) ([]rawActivity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var activities []rawActivity
	skipped := 0
	doc.Find("tr.clickable-row").Each(func(_ int, row *goquery.Selection) {
		activity, ok := parseRow(row, year, month)
		if !ok {
			skipped++
			return
		}
		activities = append(activities, activity)
	})
	s.metrics.AddDropped(sourceName, skipped)
	return activities, nil
}

// parseRow extracts one activity from a calendar table row. Rows missing a
// detail link, numeric id, day number or title are not schedulable and are
// rejected.
func parseRow(row *goquery.Selection, year int, month time.Month) (rawActivity, bool) {
	href, ok := row.Find(`a[href*="/aktivitet/"]`).First().Attr("href")
	if !ok {
		return rawActivity{}, false
	}
	idMatch := activityIDRe.FindStringSubmatch(href)
	if idMatch == nil {
		return rawActivity{}, false
	}

	day, err := strconv.Atoi(strings.TrimSpace(row.Find("span.date b").First().Text()))
	if err != nil || day < 1 || day > 31 {
		return rawActivity{}, false
	}

	title := strings.TrimSpace(row.Find("span.activity-name").First().Text())
	if title == "" {
		return rawActivity{}, false
	}

	timeCell := row.Find("td").Eq(1)
	var startTime, endTime string
	if m := startTimeRe.FindStringSubmatch(strings.TrimSpace(timeCell.Text())); m != nil {
		startTime = padClock(m[1], m[2])
	}
	if m := endTimeRe.FindStringSubmatch(strings.TrimSpace(timeCell.Find("span.text-muted").Text())); m != nil {
		endTime = padClock(m[1], m[2])
	}

	link := href
	if !strings.HasPrefix(link, "http") {
		link = siteBase + link
	}

	return rawActivity{
		ID:        idMatch[1],
		Title:     title,
		Team:      strings.TrimSpace(row.Find("span.label").First().Text()),
		Location:  strings.TrimSpace(row.Find("td").Eq(2).Find("span.text-muted.small").First().Text()),
		Day:       day,
		Month:     month,
		Year:      year,
		StartTime: startTime,
		EndTime:   endTime,
		Link:      link,
	}, true
}

func (s *Source) transform(raw []rawActivity, now time.Time) []model.Event {
	// An activity shows up on every monthly page inside its display
	// window; keep the first occurrence of each id.
	seen := make(map[string]struct{}, len(raw))
	unique := make([]rawActivity, 0, len(raw))
	for _, a := range raw {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		unique = append(unique, a)
	}

	today := dates.DayString(now)
	events := make([]model.Event, 0, len(unique))
	for _, a := range unique {
		date := dates.Date{Year: a.Year, Month: a.Month, Day: a.Day}
		start, end := date.String(), date.String()
		if a.StartTime != "" {
			start = date.String() + "T" + a.StartTime
		}
		if a.EndTime != "" {
			end = date.String() + "T" + a.EndTime
		}
		if start < today {
			continue
		}

		description := a.Team
		if a.Location != "" {
			if description != "" {
				description = description + "\n\nPlats: " + a.Location
			} else {
				description = "Plats: " + a.Location
			}
		}
		location := a.Location
		if location == "" {
			location = defaultLocation
		}

		events = append(events, model.Event{
			ID:            sources.EsportPrefix + a.ID,
			Title:         a.Title,
			StartDate:     start,
			EndDate:       end,
			Location:      location,
			Description:   description,
			Organizer:     organizer,
			OrganizerLink: organizerLink,
			Link:          a.Link,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate < events[j].StartDate
	})
	return events
}

func padClock(hour, minute string) string {
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + minute
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
