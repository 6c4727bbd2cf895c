package avalanche

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"avalanche-scraper/config"
	"avalanche-scraper/models"
	"avalanche-scraper/utils"
)

// fakeFetcher serves canned page content keyed by URL. URLs without an
// entry fail with a transient error.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchRenderedPage(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	content, ok := f.pages[url]
	if !ok {
		return "", errors.New("connection reset")
	}
	return content, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxRetries:   1,
		RateLimitMs:  0,
		FetchTimeout: 5,
		SeasonOnly:   false,
	}
}

func testScraper(fetcher PageFetcher) *Scraper {
	return New(testConfig(), utils.NewLogger(false), fetcher)
}

func day(d int) time.Time {
	return time.Date(2019, 12, d, 0, 0, 0, 0, time.UTC)
}

func testRequest(startDay, endDay int) models.ScrapeRequest {
	return models.ScrapeRequest{
		Region:    "sea-to-sky",
		StartDate: day(startDay),
		EndDate:   day(endDay),
	}
}

// ratingsPage renders an archive page with uniform day-of ratings and,
// optionally, uniform outlook ratings across all bands.
func ratingsPage(current, plus1, plus2 int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="app"><section class="danger-ratings">`)
	for _, band := range models.Bands {
		fmt.Fprintf(&b, `<div data-band="%s"><span class="rating">%d - %s</span></div>`,
			band, current, models.RatingLabel(current))
	}
	b.WriteString(`</section>`)
	if plus1 != 0 || plus2 != 0 {
		b.WriteString(`<section class="outlook">`)
		for dayNum, code := range map[int]int{1: plus1, 2: plus2} {
			if code == 0 {
				continue
			}
			fmt.Fprintf(&b, `<div data-day="%d">`, dayNum)
			for _, band := range models.Bands {
				fmt.Fprintf(&b, `<div data-band="%s">%d - %s</div>`, band, code, models.RatingLabel(code))
			}
			b.WriteString(`</div>`)
		}
		b.WriteString(`</section>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestArchiveURL(t *testing.T) {
	got := ArchiveURL("sea-to-sky", day(1))
	want := "https://www.avalanche.ca/forecasts/archives/sea-to-sky/2019-12-01"
	if got != want {
		t.Errorf("ArchiveURL: got %q, want %q", got, want)
	}
}

func TestScrapeFailedDateStillYieldsOrderedRows(t *testing.T) {
	req := testRequest(1, 5)

	fetcher := &fakeFetcher{pages: map[string]string{}}
	for d := 1; d <= 5; d++ {
		if d == 3 {
			continue // date 3 fails every attempt
		}
		fetcher.pages[ArchiveURL(req.Region, day(d))] = ratingsPage(2, 0, 0)
	}

	result, err := testScraper(fetcher).Scrape(context.Background(), req)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	if len(result.Ratings) != 5*len(models.Bands) {
		t.Fatalf("rows: got %d, want %d", len(result.Ratings), 5*len(models.Bands))
	}

	// Ascending date order, fixed band order within each date.
	for i, row := range result.Ratings {
		wantDate := day(i/3 + 1)
		if !row.Date.Equal(wantDate) {
			t.Errorf("row %d date: got %s, want %s", i, row.Date, wantDate)
		}
		if row.Band != models.Bands[i%3] {
			t.Errorf("row %d band: got %s, want %s", i, row.Band, models.Bands[i%3])
		}
	}

	for _, row := range result.Ratings {
		if row.Date.Equal(day(3)) {
			if row.Current != models.NoRating {
				t.Errorf("failed date current: got %d, want 0", row.Current)
			}
			if row.Reason != reasonUnavailable {
				t.Errorf("failed date reason: got %q, want %q", row.Reason, reasonUnavailable)
			}
		} else if row.Current != 2 {
			t.Errorf("date %s current: got %d, want 2", row.Date.Format("2006-01-02"), row.Current)
		}
	}
}

func TestScrapeAlignsOutlookToValidDate(t *testing.T) {
	req := testRequest(1, 3)

	// Day 1's page forecasts 3 for tomorrow and 4 for the day after;
	// days 2 and 3 publish no outlook.
	fetcher := &fakeFetcher{pages: map[string]string{
		ArchiveURL(req.Region, day(1)): ratingsPage(2, 3, 4),
		ArchiveURL(req.Region, day(2)): ratingsPage(3, 0, 0),
		ArchiveURL(req.Region, day(3)): ratingsPage(3, 0, 0),
	}}

	result, err := testScraper(fetcher).Scrape(context.Background(), req)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	for _, row := range result.Ratings {
		switch {
		case row.Date.Equal(day(1)):
			if row.Plus1 != 0 || row.Plus2 != 0 {
				t.Errorf("day 1 has no earlier-issued forecasts: got plus1=%d plus2=%d", row.Plus1, row.Plus2)
			}
		case row.Date.Equal(day(2)):
			if row.Plus1 != 3 {
				t.Errorf("day 2 plus1: got %d, want 3 (issued on day 1)", row.Plus1)
			}
		case row.Date.Equal(day(3)):
			if row.Plus2 != 4 {
				t.Errorf("day 3 plus2: got %d, want 4 (issued on day 1)", row.Plus2)
			}
			if row.Plus1 != 0 {
				t.Errorf("day 3 plus1: got %d, want 0 (day 2 published none)", row.Plus1)
			}
		}
	}
}

func TestScrapeOutlookBeyondRangeDiscarded(t *testing.T) {
	req := testRequest(1, 1)

	fetcher := &fakeFetcher{pages: map[string]string{
		ArchiveURL(req.Region, day(1)): ratingsPage(2, 3, 4),
	}}

	result, err := testScraper(fetcher).Scrape(context.Background(), req)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Ratings) != len(models.Bands) {
		t.Fatalf("rows: got %d, want %d", len(result.Ratings), len(models.Bands))
	}
}

func TestScrapeSeasonFilterSkipsFetch(t *testing.T) {
	cfg := testConfig()
	cfg.SeasonOnly = true

	// July is off season: no page needed, rows still produced.
	req := models.ScrapeRequest{
		Region:    "sea-to-sky",
		StartDate: time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2019, 7, 2, 0, 0, 0, 0, time.UTC),
	}

	fetcher := &fakeFetcher{pages: map[string]string{}}
	result, err := New(cfg, utils.NewLogger(false), fetcher).Scrape(context.Background(), req)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	if len(fetcher.fetched) != 0 {
		t.Errorf("off-season dates should not be fetched, got %d fetches", len(fetcher.fetched))
	}
	if len(result.Ratings) != 2*len(models.Bands) {
		t.Fatalf("rows: got %d, want %d", len(result.Ratings), 2*len(models.Bands))
	}
	for _, row := range result.Ratings {
		if row.Reason != reasonOffSeason {
			t.Errorf("reason: got %q, want %q", row.Reason, reasonOffSeason)
		}
	}
}

func TestScrapeInvalidRange(t *testing.T) {
	req := testRequest(10, 1)

	_, err := testScraper(&fakeFetcher{}).Scrape(context.Background(), req)
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Errorf("got %v, want ErrInvalidRange", err)
	}
}

func TestScrapeCancelledBetweenDates(t *testing.T) {
	req := testRequest(1, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testScraper(&fakeFetcher{pages: map[string]string{}}).Scrape(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestVerifyArchiveLayout(t *testing.T) {
	url := ArchiveURL("sea-to-sky", day(1))

	good := &fakeFetcher{pages: map[string]string{url: ratingsPage(1, 0, 0)}}
	if err := testScraper(good).VerifyArchiveLayout(context.Background(), "sea-to-sky", "2019-12-01"); err != nil {
		t.Errorf("preflight on valid page: %v", err)
	}

	// A page that renders but lost its rating markers must fail preflight.
	drifted := &fakeFetcher{pages: map[string]string{
		url: `<html><body><div id="app"><p>Forecast layout v2</p></div></body></html>`,
	}}
	if err := testScraper(drifted).VerifyArchiveLayout(context.Background(), "sea-to-sky", "2019-12-01"); err == nil {
		t.Error("preflight on markerless page should fail")
	}
}

func TestInSeason(t *testing.T) {
	if !InSeason(time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("January should be in season")
	}
	if InSeason(time.Date(2020, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("July should be off season")
	}
}
