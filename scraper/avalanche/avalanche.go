// Package avalanche drives the scrape of the Avalanche Canada forecast
// archive: one region and date range in, one assembled raw dataset out.
package avalanche

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"avalanche-scraper/config"
	"avalanche-scraper/models"
	"avalanche-scraper/parser"
	"avalanche-scraper/utils"
)

const baseURL = "https://www.avalanche.ca/forecasts/archives"

const dateLayout = "2006-01-02"

// Row reasons recorded when a date's page produced no day-of rating.
const (
	reasonUnavailable = "page unavailable"
	reasonParseFailed = "parse failed"
	reasonOffSeason   = "off season"
)

// seasonMonths are the months Avalanche Canada publishes forecasts for.
var seasonMonths = map[time.Month]bool{
	time.November: true, time.December: true, time.January: true,
	time.February: true, time.March: true, time.April: true,
}

// PageFetcher is the rendered-page capability the orchestrator depends on.
// The production implementation drives a headless browser; tests substitute
// canned page content.
type PageFetcher interface {
	FetchRenderedPage(ctx context.Context, url string) (string, error)
}

// Scraper orchestrates the archive scrape for one browser session. Dates are
// fetched strictly sequentially: the session cannot be shared across
// concurrent navigations, and sequential fetching keeps the output in
// ascending date order.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	fetcher PageFetcher
	limiter *utils.Limiter
	retry   *utils.RetryConfig
}

// New creates a Scraper driving the given page fetcher.
func New(cfg *config.Config, logger *utils.Logger, fetcher PageFetcher) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		limiter: utils.NewLimiter(cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// ArchiveURL builds the archive page URL for a region and date. The path
// scheme is fixed by the archive; a change there is an integration failure
// that VerifyArchiveLayout detects.
func ArchiveURL(region string, date time.Time) string {
	return fmt.Sprintf("%s/%s/%s", baseURL, region, date.Format(dateLayout))
}

// InSeason reports whether the archive publishes forecasts for the date's
// month (November through April).
func InSeason(date time.Time) bool {
	return seasonMonths[date.Month()]
}

// Scrape walks every calendar date in the request range, fetches and parses
// the archive page for each, and assembles the rows by valid date: the page
// for date D supplies the day-of rating for D and the outlook ratings for
// D+1 and D+2. Missing pages become null-rating rows; a single bad date
// never aborts the range. The context is checked between dates, so an abort
// takes effect once the in-flight fetch (and its bounded retries) finishes.
func (s *Scraper) Scrape(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	if req.Region == "" {
		return nil, fmt.Errorf("scrape %q: region is required", req.Region)
	}
	if req.Days() == 0 {
		return nil, fmt.Errorf("scrape %s: %w", req.Region, models.ErrInvalidRange)
	}

	s.logger.Info("[scrape] %s: %s .. %s (%d dates)",
		req.Region, req.StartDate.Format(dateLayout), req.EndDate.Format(dateLayout), req.Days())

	rows := newRowTable(req)
	var problems []*models.ProblemNote

	for date := req.StartDate; !date.After(req.EndDate); date = date.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.cfg.SeasonOnly && !InSeason(date) {
			rows.markDate(date, reasonOffSeason)
			s.logger.Debug("[scrape] %s: skipping off-season date %s", req.Region, date.Format(dateLayout))
			continue
		}

		page, err := s.fetchPage(ctx, req.Region, date)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var missing *parser.MissingMarkerError
			switch {
			case errors.Is(err, parser.ErrPageUnavailable):
				s.logger.Warn("[scrape] %s %s: no forecast page — recording null row",
					req.Region, date.Format(dateLayout))
				rows.markDate(date, reasonUnavailable)
			case errors.As(err, &missing):
				s.logger.Warn("[scrape] %s %s: %v — recording null row",
					req.Region, date.Format(dateLayout), err)
				rows.markDate(date, reasonParseFailed)
			default:
				// Retries exhausted on a transient failure: demote to the
				// page-unavailable handling and keep going.
				s.logger.Warn("[scrape] %s %s: %v — recording null row",
					req.Region, date.Format(dateLayout), err)
				rows.markDate(date, reasonUnavailable)
			}
			continue
		}

		rows.apply(page)
		if page.Problems != "" {
			problems = append(problems, &models.ProblemNote{
				Region: req.Region,
				Date:   date,
				Text:   page.Problems,
			})
		}
	}

	dataset := rows.sorted()
	s.logger.Info("[scrape] %s: assembled %d rows, %d problem notes",
		req.Region, len(dataset), len(problems))

	return &models.ScrapeResult{Ratings: dataset, Problems: problems}, nil
}

// fetchPage navigates to one archive date with pacing, per-fetch timeout and
// bounded retries, then parses the rendered content. Transient fetch
// failures that exhaust their retries surface as errors and are demoted by
// the caller.
func (s *Scraper) fetchPage(ctx context.Context, region string, date time.Time) (*models.PageForecast, error) {
	url := ArchiveURL(region, date)

	var content string
	err := s.retry.Do(ctx, "fetch "+url, func() error {
		s.limiter.Wait()

		fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.FetchTimeout)*time.Second)
		defer cancel()

		var ferr error
		content, ferr = s.fetcher.FetchRenderedPage(fetchCtx, url)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	return parser.Parse(content, region, date)
}

// VerifyArchiveLayout is the pre-flight path-validation check: it fetches a
// known-good archived date and confirms the parser still finds every day-of
// rating marker. Run it before a long batch so a changed page scheme fails
// fast instead of producing seasons of null rows.
func (s *Scraper) VerifyArchiveLayout(ctx context.Context, region, dateStr string) error {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return fmt.Errorf("preflight: invalid date %q: %w", dateStr, err)
	}

	if _, err := s.fetchPage(ctx, region, date); err != nil {
		return fmt.Errorf("preflight: archive layout check failed for %s: %w", ArchiveURL(region, date), err)
	}
	return nil
}

// rowTable accumulates DailyRating rows keyed by (date, band) while pages
// are applied out of their valid-date alignment.
type rowTable struct {
	req  models.ScrapeRequest
	rows map[string]*models.DailyRating
}

func newRowTable(req models.ScrapeRequest) *rowTable {
	t := &rowTable{req: req, rows: make(map[string]*models.DailyRating, req.Days()*len(models.Bands))}
	for date := req.StartDate; !date.After(req.EndDate); date = date.AddDate(0, 0, 1) {
		for _, band := range models.Bands {
			t.rows[rowKey(date, band)] = &models.DailyRating{
				Region: req.Region,
				Date:   date,
				Band:   band,
			}
		}
	}
	return t
}

func rowKey(date time.Time, band models.ElevationBand) string {
	return date.Format(dateLayout) + "/" + string(band)
}

func (t *rowTable) inRange(date time.Time) bool {
	return !date.Before(t.req.StartDate) && !date.After(t.req.EndDate)
}

// markDate records why a date's page yielded no day-of data. Outlook ratings
// already applied to the date from earlier pages are kept.
func (t *rowTable) markDate(date time.Time, reason string) {
	for _, band := range models.Bands {
		t.rows[rowKey(date, band)].Reason = reason
	}
}

// apply distributes one parsed page onto the table: day-of onto the page
// date, outlook onto the rows one and two days later. Outlook for dates
// past the end of the range is discarded.
func (t *rowTable) apply(page *models.PageForecast) {
	now := time.Now()

	for _, bf := range page.Bands {
		row := t.rows[rowKey(page.Date, bf.Band)]
		row.Current = bf.Current
		row.CurrentLabel = bf.CurrentLabel
		row.ScrapedAt = now

		if next := page.Date.AddDate(0, 0, 1); t.inRange(next) && bf.Plus1 != models.NoRating {
			target := t.rows[rowKey(next, bf.Band)]
			target.Plus1 = bf.Plus1
			target.Plus1Label = bf.Plus1Label
		}
		if after := page.Date.AddDate(0, 0, 2); t.inRange(after) && bf.Plus2 != models.NoRating {
			target := t.rows[rowKey(after, bf.Band)]
			target.Plus2 = bf.Plus2
			target.Plus2Label = bf.Plus2Label
		}
	}
}

// sorted flattens the table into ascending date order, bands in fixed order
// within each date, independent of fetch/retry timing.
func (t *rowTable) sorted() models.RawDataset {
	dataset := make(models.RawDataset, 0, len(t.rows))
	for _, row := range t.rows {
		dataset = append(dataset, row)
	}

	bandOrder := map[models.ElevationBand]int{}
	for i, band := range models.Bands {
		bandOrder[band] = i
	}

	sort.Slice(dataset, func(i, j int) bool {
		if !dataset[i].Date.Equal(dataset[j].Date) {
			return dataset[i].Date.Before(dataset[j].Date)
		}
		return bandOrder[dataset[i].Band] < bandOrder[dataset[j].Band]
	})
	return dataset
}
