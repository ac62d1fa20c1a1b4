package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/svangsta/eventfeed/internal/app"
	"github.com/svangsta/eventfeed/internal/feed"
	"github.com/svangsta/eventfeed/internal/model"
	"github.com/svangsta/eventfeed/internal/sources"
	"github.com/svangsta/eventfeed/pkg/logger"

	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// stubSource returns canned events or a canned error.
type stubSource struct {
	name   string
	prefix string
	events []model.Event
	err    error
}

func (s *stubSource) Name() string   { return s.name }
func (s *stubSource) Prefix() string { return s.prefix }
func (s *stubSource) Events(ctx context.Context, now time.Time) ([]model.Event, error) {
	return s.events, s.err
}

// panicSource exercises the isolation wrapper.
type panicSource struct{ stubSource }

func (s *panicSource) Events(ctx context.Context, now time.Time) ([]model.Event, error) {
	panic("selector exploded")
}

var clock = func() time.Time {
	return time.Date(2025, time.June, 12, 9, 0, 0, 0, time.UTC)
}

func TestRunnerRun(t *testing.T) {
	Convey("Given a previous feed with a curated future event", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "events.json")
		curated := model.Event{
			ID:        "other-1",
			Title:     "PRO månadsmöte",
			StartDate: "2025-09-01T14:00",
			EndDate:   "2025-09-01T16:00",
			Location:  "Folkets hus",
		}
		So(feed.Save(path, []model.Event{curated}), ShouldBeNil)

		churchEvent := model.Event{
			ID:        "church-200",
			Title:     "Mässa",
			StartDate: "2025-06-20T11:00",
			EndDate:   "2025-06-20T12:00",
		}

		srcs := []sources.Source{
			&stubSource{name: "church", prefix: "church-", events: []model.Event{churchEvent}},
			&stubSource{name: "garden", prefix: "garden-", err: errors.New("connection refused")},
		}

		Convey("When one source succeeds and one fails", func() {
			runner := app.New(path, srcs, app.WithClock(clock))
			summary, err := runner.Run(context.Background())

			Convey("Then the run still succeeds", func() {
				So(err, ShouldBeNil)
				So(summary.FailedSources, ShouldResemble, []string{"garden"})
				So(summary.PerSource["church"], ShouldEqual, 1)
				So(summary.PerSource["garden"], ShouldEqual, 0)
				So(summary.Total, ShouldEqual, 2)
			})

			Convey("Then the curated event survives and the fresh one joins it", func() {
				written, err := feed.Load(path)
				So(err, ShouldBeNil)
				So(written, ShouldHaveLength, 2)
				So(written[0], ShouldResemble, churchEvent)
				So(written[1], ShouldResemble, curated)
			})
		})

		Convey("When a source panics", func() {
			runner := app.New(path, []sources.Source{
				&panicSource{stubSource{name: "esport", prefix: "esport-"}},
				&stubSource{name: "church", prefix: "church-", events: []model.Event{churchEvent}},
			}, app.WithClock(clock))

			summary, err := runner.Run(context.Background())

			Convey("Then the panic is contained like any source failure", func() {
				So(err, ShouldBeNil)
				So(summary.FailedSources, ShouldResemble, []string{"esport"})
				So(summary.PerSource["church"], ShouldEqual, 1)
			})
		})

		Convey("When a source's owned future events vanish upstream", func() {
			stale := model.Event{ID: "church-9", Title: "Inställd", StartDate: "2025-08-08", EndDate: "2025-08-08"}
			So(feed.Save(path, []model.Event{curated, stale}), ShouldBeNil)

			runner := app.New(path, []sources.Source{
				&stubSource{name: "church", prefix: "church-"},
			}, app.WithClock(clock))
			summary, err := runner.Run(context.Background())

			Convey("Then they are replaced by absence", func() {
				So(err, ShouldBeNil)
				So(summary.Total, ShouldEqual, 1)
				written, err := feed.Load(path)
				So(err, ShouldBeNil)
				So(written[0].ID, ShouldEqual, "other-1")
			})
		})

		Convey("When run twice with unchanged sources", func() {
			runner := app.New(path, srcs, app.WithClock(clock))
			_, err := runner.Run(context.Background())
			So(err, ShouldBeNil)
			first, err := os.ReadFile(path)
			So(err, ShouldBeNil)

			_, err = runner.Run(context.Background())
			So(err, ShouldBeNil)
			second, err := os.ReadFile(path)
			So(err, ShouldBeNil)

			Convey("Then the persisted feed is byte-for-byte identical", func() {
				So(string(second), ShouldEqual, string(first))
			})
		})
	})

	Convey("Given a corrupt previous feed", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "events.json")
		So(os.WriteFile(path, []byte("[{"), 0o644), ShouldBeNil)

		runner := app.New(path, []sources.Source{
			&stubSource{name: "church", prefix: "church-"},
		}, app.WithClock(clock))

		Convey("When running", func() {
			_, err := runner.Run(context.Background())

			Convey("Then the run fails fatally and the file is untouched", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, feed.ErrCorruptFeed), ShouldBeTrue)
				raw, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(raw), ShouldEqual, "[{")
			})
		})
	})

	Convey("Given no previous feed at all", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "data", "events.json")

		runner := app.New(path, []sources.Source{
			&stubSource{name: "church", prefix: "church-", events: []model.Event{{
				ID: "church-1", Title: "Gudstjänst", StartDate: "2025-07-06", EndDate: "2025-07-06",
			}}},
		}, app.WithClock(clock))

		Convey("When running the first time", func() {
			summary, err := runner.Run(context.Background())

			Convey("Then the feed holds only the freshly fetched events", func() {
				So(err, ShouldBeNil)
				So(summary.Total, ShouldEqual, 1)
				So(summary.PastKept, ShouldEqual, 0)
				So(summary.ForeignKept, ShouldEqual, 0)
				written, err := feed.Load(path)
				So(err, ShouldBeNil)
				So(written, ShouldHaveLength, 1)
			})
		})
	})
}
