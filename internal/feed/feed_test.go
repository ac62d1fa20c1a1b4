package feed_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/svangsta/eventfeed/internal/feed"
	"github.com/svangsta/eventfeed/internal/model"

	. "github.com/smartystreets/goconvey/convey"
)

var ownedPrefixes = []string{"church-", "garden-", "esport-"}

func event(id, start string) model.Event {
	return model.Event{
		ID:        id,
		Title:     "event " + id,
		StartDate: start,
		EndDate:   start,
		Location:  "Svängsta",
	}
}

func TestLoad(t *testing.T) {
	Convey("Given a feed path", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "events.json")

		Convey("When the file does not exist", func() {
			events, err := feed.Load(path)

			Convey("Then the feed is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When the file holds a valid feed", func() {
			So(feed.Save(path, []model.Event{event("other-1", "2030-01-01")}), ShouldBeNil)
			events, err := feed.Load(path)

			Convey("Then it round-trips", func() {
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].ID, ShouldEqual, "other-1")
			})
		})

		Convey("When the file is corrupt", func() {
			So(os.WriteFile(path, []byte("{not json"), 0o644), ShouldBeNil)
			_, err := feed.Load(path)

			Convey("Then the corrupt-feed sentinel surfaces", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, feed.ErrCorruptFeed), ShouldBeTrue)
			})
		})
	})
}

func TestMerge(t *testing.T) {
	const today = "2025-06-12"

	Convey("Given a previous feed mixing past, foreign and owned events", t, func() {
		past := event("church-old", "2024-12-24T18:00")
		pastForeign := event("pro-ancient", "2020-01-01")
		foreignFuture := event("pro-77", "2025-07-01T14:00")
		ownedFuture := event("garden-5", "2025-08-01")
		ownedToday := event("esport-9", today+"T19:00")
		previous := []model.Event{past, pastForeign, foreignFuture, ownedFuture, ownedToday}

		Convey("When merging with fresh events", func() {
			fresh := []model.Event{
				event("church-new", "2025-06-20T11:00"),
				event("garden-6", "2025-06-15"),
			}
			res := feed.Merge(previous, fresh, ownedPrefixes, today)

			ids := make([]string, 0, len(res.Events))
			for _, e := range res.Events {
				ids = append(ids, e.ID)
			}

			Convey("Then past events are retained verbatim regardless of owner", func() {
				So(ids, ShouldContain, "church-old")
				So(ids, ShouldContain, "pro-ancient")
				So(res.PastKept, ShouldEqual, 2)
			})

			Convey("Then foreign future events pass through untouched", func() {
				So(ids, ShouldContain, "pro-77")
				So(res.ForeignKept, ShouldEqual, 1)
				for _, e := range res.Events {
					if e.ID == "pro-77" {
						So(e, ShouldResemble, foreignFuture)
					}
				}
			})

			Convey("Then owned future events are replaced by the fresh set", func() {
				So(ids, ShouldNotContain, "garden-5")
				So(ids, ShouldNotContain, "esport-9")
				So(ids, ShouldContain, "church-new")
				So(ids, ShouldContain, "garden-6")
			})

			Convey("Then the output is sorted ascending by start date", func() {
				for i := 1; i < len(res.Events); i++ {
					So(res.Events[i-1].StartDate, ShouldBeLessThanOrEqualTo, res.Events[i].StartDate)
				}
			})

			Convey("And every event satisfies start <= end", func() {
				for _, e := range res.Events {
					So(e.StartDate, ShouldBeLessThanOrEqualTo, e.EndDate)
				}
			})
		})

		Convey("When a source reports zero events", func() {
			res := feed.Merge(previous, nil, ownedPrefixes, today)

			Convey("Then its owned future events vanish (replaced by absence)", func() {
				for _, e := range res.Events {
					So(e.ID, ShouldNotEqual, "garden-5")
					So(e.ID, ShouldNotEqual, "esport-9")
				}
				So(res.Events, ShouldHaveLength, 3)
			})
		})

		Convey("When merging twice with the same inputs", func() {
			first := feed.Merge(previous, nil, ownedPrefixes, today)
			second := feed.Merge(first.Events, nil, ownedPrefixes, today)

			Convey("Then the merge is idempotent", func() {
				So(second.Events, ShouldResemble, first.Events)
			})
		})
	})

	Convey("Given a previous event with no start date", t, func() {
		previous := []model.Event{event("pro-blank", "")}
		res := feed.Merge(previous, nil, ownedPrefixes, today)

		Convey("Then it is discarded rather than scheduled arbitrarily", func() {
			So(res.Events, ShouldBeEmpty)
		})
	})
}

func TestSave(t *testing.T) {
	Convey("Given events to persist", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "data", "events.json")

		Convey("When saving", func() {
			So(feed.Save(path, []model.Event{event("other-1", "2030-01-01")}), ShouldBeNil)
			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)

			Convey("Then the document is a pretty-printed array with trailing newline", func() {
				So(strings.HasPrefix(string(raw), "[\n  {"), ShouldBeTrue)
				So(strings.HasSuffix(string(raw), "]\n"), ShouldBeTrue)

				var events []model.Event
				So(json.Unmarshal(raw, &events), ShouldBeNil)
				So(events, ShouldHaveLength, 1)
			})

			Convey("And no temporary file is left behind", func() {
				entries, err := os.ReadDir(filepath.Dir(path))
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When saving an empty feed", func() {
			So(feed.Save(path, nil), ShouldBeNil)
			raw, err := os.ReadFile(path)

			Convey("Then an empty JSON array is written, not null", func() {
				So(err, ShouldBeNil)
				So(strings.TrimSpace(string(raw)), ShouldEqual, "[]")
			})
		})
	})
}
