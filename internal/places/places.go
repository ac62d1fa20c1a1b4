// Package places resolves place identifiers to formatted street addresses
// via the place-lookup API, memoizing one result per identifier for the
// lifetime of a run.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/svangsta/eventfeed/internal/config"
	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

// Resolver looks up addresses with a fixed pause between distinct lookups.
// The endpoint is a shared third-party service and the pause is deliberate;
// callers must invoke Resolve sequentially. The Resolver is not safe for
// concurrent use, matching the strictly sequential enrichment loop it
// serves.
type Resolver struct {
	client  *http.Client
	apiURL  string
	apiKey  string
	delay   time.Duration
	log     logger.Logger
	metrics *metrics.Manager

	// cache maps place id to its resolved address. An empty string records
	// a failed or empty lookup so it is never retried within the run.
	cache  map[string]string
	looked bool
}

// New constructs a Resolver for one run.
func New(cfg config.PlacesConfig, opts ...Option) *Resolver {
	r := &Resolver{
		client: &http.Client{Timeout: 30 * time.Second},
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		delay:  time.Duration(cfg.DelayMS) * time.Millisecond,
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("places")
	}
	return r
}

// Resolve returns the formatted address for placeID, or ok=false when the
// lookup failed or the place has no usable address. Enrichment is
// best-effort: no error is ever returned.
func (r *Resolver) Resolve(ctx context.Context, placeID string) (string, bool) {
	if addr, seen := r.cache[placeID]; seen {
		r.metrics.IncPlaceCacheHit()
		return addr, addr != ""
	}

	if r.looked && r.delay > 0 {
		if err := sleep(ctx, r.delay); err != nil {
			return "", false
		}
	}
	r.looked = true

	r.metrics.IncPlaceLookup()
	addr := r.lookup(ctx, placeID)
	r.cache[placeID] = addr
	return addr, addr != ""
}

func (r *Resolver) lookup(ctx context.Context, placeID string) string {
	query := url.Values{}
	query.Set("apikey", r.apiKey)
	query.Set("id", placeID)
	query.Set("limit", "1")
	query.Set("offset", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		r.log.Warn(ctx, "place lookup request failed", logger.String("place_id", placeID), logger.Error(err))
		return ""
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn(ctx, "place lookup failed", logger.String("place_id", placeID), logger.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		r.log.Warn(ctx, "place lookup returned non-2xx",
			logger.String("place_id", placeID), logger.Int("status", resp.StatusCode))
		return ""
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.log.Warn(ctx, "place lookup decode failed", logger.String("place_id", placeID), logger.Error(err))
		return ""
	}
	if len(body.Result) == 0 {
		return ""
	}
	return body.Result[0].formatAddress()
}

// lookupResponse mirrors the place API envelope. Two address shapes have
// been observed across API revisions; both are accepted, preferring the
// "address" form (see DESIGN.md).
type lookupResponse struct {
	Result []placeRecord `json:"result"`
}

type placeRecord struct {
	Address      *streetAddress   `json:"address"`
	VisitingInfo *visitingAddress `json:"visitingInfo"`
}

type streetAddress struct {
	Street  string `json:"street"`
	ZipCode string `json:"zipCode"`
	City    string `json:"city"`
}

type visitingAddress struct {
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
}

// formatAddress joins street and locality into "Street 1, 123 45 Town".
func (p placeRecord) formatAddress() string {
	var street, postal, city string
	switch {
	case p.Address != nil:
		street, postal, city = p.Address.Street, p.Address.ZipCode, p.Address.City
	case p.VisitingInfo != nil:
		street, postal, city = p.VisitingInfo.Address, p.VisitingInfo.PostalCode, p.VisitingInfo.City
	default:
		return ""
	}

	var parts []string
	if street != "" {
		parts = append(parts, street)
	}
	switch {
	case postal != "" && city != "":
		parts = append(parts, fmt.Sprintf("%s %s", postal, city))
	case city != "":
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
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
