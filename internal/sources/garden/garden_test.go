package garden_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/svangsta/eventfeed/internal/config"
	"github.com/svangsta/eventfeed/internal/sources/garden"
	"github.com/svangsta/eventfeed/pkg/logger"

	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const listingPage = `<html><body>
<ol class="article-list">
  <li>
    <h2><a href="https://svangstatradgard.se/index.php/2025/06/vaxtloppis/">Växtloppis</a></h2>
    <p>Vi träffas i parken kl. 18.00 och byter plantor.</p>
    <div class="meta"><span class="date">juni 19, 2025</span></div>
  </li>
  <li>
    <h2><a href="https://svangstatradgard.se/index.php/2025/07/sommarfika/">Sommarfika</a></h2>
    <p>LONGTEXT</p>
    <div class="meta"><span class="date">5 juli</span></div>
  </li>
  <li>
    <h2><a href="https://svangstatradgard.se/index.php/medlemsinfo/">Medlemsinfo</a></h2>
    <p>Styrelsen informerar.</p>
    <div class="meta"><span class="date">kommande aktiviteter</span></div>
  </li>
  <li>
    <h2><a href="https://svangstatradgard.se/index.php/2025/03/arsmote/">Årsmöte</a></h2>
    <p>Sedvanliga förhandlingar kl. 14.00.</p>
    <div class="meta"><span class="date">mars 1, 2025</span></div>
  </li>
  <li>
    <h2><a></a></h2>
    <p>Tom post utan titel.</p>
  </li>
</ol>
</body></html>`

func TestGardenSource(t *testing.T) {
	now := time.Date(2025, time.June, 12, 10, 0, 0, 0, time.UTC)
	longText := strings.Repeat("a", 290) + " slutet försvinner härifrån"

	Convey("Given the garden society listing page", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Replace(listingPage, "LONGTEXT", longText, 1)))
		}))
		defer srv.Close()

		src := garden.New(config.GardenConfig{Enabled: true, URL: srv.URL})

		Convey("When fetching events", func() {
			events, err := src.Events(context.Background(), now)
			So(err, ShouldBeNil)

			Convey("Then dateless and past entries are gone, the rest sorted", func() {
				So(events, ShouldHaveLength, 2)
				So(events[0].Title, ShouldEqual, "Växtloppis")
				So(events[1].Title, ShouldEqual, "Sommarfika")
			})

			Convey("Then a body time yields a two-hour timed event", func() {
				So(events[0].StartDate, ShouldEqual, "2025-06-19T18:00")
				So(events[0].EndDate, ShouldEqual, "2025-06-19T20:00")
			})

			Convey("Then a yearless date assumes the current year, all-day", func() {
				So(events[1].StartDate, ShouldEqual, "2025-07-05")
				So(events[1].EndDate, ShouldEqual, "2025-07-05")
			})

			Convey("Then the id comes from the link's last path segment", func() {
				So(events[0].ID, ShouldEqual, "garden-vaxtloppis")
				So(events[1].ID, ShouldEqual, "garden-sommarfika")
			})

			Convey("Then long descriptions are truncated and trimmed", func() {
				So(len([]rune(events[1].Description)), ShouldBeLessThanOrEqualTo, 300)
				So(strings.HasPrefix(events[1].Description, "aaa"), ShouldBeTrue)
			})

			Convey("Then source metadata is constant", func() {
				So(events[0].Location, ShouldEqual, "Svängsta")
				So(events[0].Organizer, ShouldEqual, "Svängsta Trädgårdsförening")
				So(events[0].OrganizerLink, ShouldEqual, "https://svangstatradgard.se")
				So(events[0].Link, ShouldEqual, "https://svangstatradgard.se/index.php/2025/06/vaxtloppis/")
			})
		})
	})

	Convey("Given an unreachable listing page", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		src := garden.New(config.GardenConfig{URL: srv.URL})

		Convey("Then the failure surfaces as an error for the orchestrator", func() {
			_, err := src.Events(context.Background(), now)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "404")
		})
	})
}
