// Package parser extracts danger ratings from rendered archive pages. It is
// a pure transformation over supplied HTML: no fetching, no side effects.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"avalanche-scraper/models"
)

var (
	// ratingCellRegexp captures the "2 - Moderate" cell format used by the
	// archive for every rating marker.
	ratingCellRegexp = regexp.MustCompile(`([1-5])\s*-\s*([A-Za-z ]+)`)
	// unavailableRegexp matches the notices the archive renders instead of a
	// forecast when none was published for the requested date.
	unavailableRegexp = regexp.MustCompile(`(?i)(no forecast (is )?available|forecast not found|page not found|404)`)
)

// bandLineRegexps match one text line of the danger-rating table per band,
// used as a fallback when the structured selectors find nothing. "Treeline"
// is anchored to the line start so it never matches "Below Treeline" rows.
var bandLineRegexps = map[models.ElevationBand]*regexp.Regexp{
	models.BandAlpine:    regexp.MustCompile(`(?i)^\s*Alpine\b.*?([1-5]\s*-\s*[A-Za-z ]+)`),
	models.BandTreeline:  regexp.MustCompile(`(?i)^\s*Treeline\b.*?([1-5]\s*-\s*[A-Za-z ]+)`),
	models.BandBelowTree: regexp.MustCompile(`(?i)^\s*Below\s*Treeline\b.*?([1-5]\s*-\s*[A-Za-z ]+)`),
}

// Parse extracts the day-of danger ratings, the one- and two-day outlook
// ratings, and the forecaster's problem text from the rendered HTML of a
// single archived forecast page.
//
// A page the archive could not serve yields ErrPageUnavailable. A page with
// content but without a day-of rating marker for some band yields a
// *MissingMarkerError naming that marker. Absent outlook cells are not an
// error: the forecast simply was not published that far out, and the rating
// stays 0.
func Parse(content, region string, date time.Time) (*models.PageForecast, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrPageUnavailable
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	pageText := doc.Text()
	if unavailableRegexp.MatchString(pageText) {
		return nil, ErrPageUnavailable
	}
	if app := doc.Find("#app"); app.Length() > 0 && strings.TrimSpace(app.Text()) == "" {
		// SPA shell rendered with no forecast content.
		return nil, ErrPageUnavailable
	}

	page := &models.PageForecast{
		Region: region,
		Date:   date,
		Bands:  make([]models.BandForecast, 0, len(models.Bands)),
	}

	for _, band := range models.Bands {
		code, label, ok := dayOfRating(doc, pageText, band)
		if !ok {
			return nil, &MissingMarkerError{Marker: fmt.Sprintf("%s day-of rating", band)}
		}

		bf := models.BandForecast{
			Band:         band,
			Current:      code,
			CurrentLabel: label,
		}
		bf.Plus1, bf.Plus1Label = outlookRating(doc, band, 1)
		bf.Plus2, bf.Plus2Label = outlookRating(doc, band, 2)
		page.Bands = append(page.Bands, bf)
	}

	page.Problems = problemText(doc)
	return page, nil
}

// dayOfRating locates the current-day rating marker for one elevation band.
// Selector strategies are tried in order; the text-line scan is the last
// resort for layout drift.
func dayOfRating(doc *goquery.Document, pageText string, band models.ElevationBand) (int, string, bool) {
	selectors := []string{
		fmt.Sprintf(`[data-testid="danger-rating-%s"]`, band),
		fmt.Sprintf(`.danger-ratings [data-band=%q] .rating`, band),
		fmt.Sprintf(`.danger-table [data-band=%q]`, band),
	}

	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if code, label := parseRatingCell(node.Text()); code != models.NoRating {
				return code, label, true
			}
		}
	}

	// Fallback: scan the page text line by line for the band's table row.
	re := bandLineRegexps[band]
	for _, line := range strings.Split(pageText, "\n") {
		if m := re.FindStringSubmatch(line); m != nil {
			if code, label := parseRatingCell(m[1]); code != models.NoRating {
				return code, label, true
			}
		}
	}

	return models.NoRating, "", false
}

// outlookRating locates the forecast the page issued for the given band at
// page date + day. Missing cells mean "not published", never an error.
func outlookRating(doc *goquery.Document, band models.ElevationBand, day int) (int, string) {
	selectors := []string{
		fmt.Sprintf(`[data-testid="outlook-day%d-%s"]`, day, band),
		fmt.Sprintf(`.outlook [data-day="%d"] [data-band=%q]`, day, band),
	}

	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return parseRatingCell(node.Text())
		}
	}
	return models.NoRating, ""
}

// problemText collects the forecaster's snowpack problem paragraphs, if any.
func problemText(doc *goquery.Document) string {
	selectors := []string{
		`[data-testid="problem-list"]`,
		`.problems`,
	}

	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return normaliseText(node.Text())
		}
	}
	return ""
}

// parseRatingCell parses the archive's "N - Label" cell format. Cells
// reading "No Rating", "N/A" or anything else without a 1-5 code map to
// NoRating.
func parseRatingCell(text string) (int, string) {
	m := ratingCellRegexp.FindStringSubmatch(text)
	if m == nil {
		return models.NoRating, ""
	}

	code, err := strconv.Atoi(m[1])
	if err != nil || code < models.RatingLow || code > models.RatingExtreme {
		return models.NoRating, ""
	}
	return code, normaliseText(m[2])
}

// normaliseText strips leading/trailing whitespace and collapses internal
// whitespace runs to single spaces.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
