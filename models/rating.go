package models

import "time"

// ElevationBand is the vertical zone a danger rating applies to.
type ElevationBand string

const (
	BandAlpine    ElevationBand = "alpine"
	BandTreeline  ElevationBand = "treeline"
	BandBelowTree ElevationBand = "belowtree"
)

// Bands lists the elevation bands in the order rows are emitted per date.
var Bands = []ElevationBand{BandAlpine, BandTreeline, BandBelowTree}

// Danger ratings run 1 (Low) through 5 (Extreme). A rating of 0 means
// "no rating": the forecast was not published, not parsed, or the date was
// gap-filled. 0 is excluded from all anomaly statistics.
const (
	NoRating      = 0
	RatingLow     = 1
	RatingExtreme = 5
)

var ratingLabels = map[int]string{
	1: "Low",
	2: "Moderate",
	3: "Considerable",
	4: "High",
	5: "Extreme",
}

// RatingLabel returns the forecast authority's name for a rating code,
// or "" for NoRating / out-of-range values.
func RatingLabel(code int) string {
	return ratingLabels[code]
}

// ScrapeRequest describes one region/date-range scrape job.
type ScrapeRequest struct {
	Region    string
	StartDate time.Time
	EndDate   time.Time
}

// Days returns the number of calendar dates in the request range, inclusive.
func (r ScrapeRequest) Days() int {
	if r.EndDate.Before(r.StartDate) {
		return 0
	}
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// Horizon selects which forecast column a statistic is computed over.
type Horizon string

const (
	HorizonPlus1 Horizon = "plus1"
	HorizonPlus2 Horizon = "plus2"
)

// DailyRating is one row of the assembled dataset: the ratings valid for a
// single date and elevation band. Current is the day-of rating from that
// date's page; Plus1 and Plus2 are the earlier-issued forecasts for the same
// valid date (from the pages one and two days prior). Immutable once the
// orchestrator has assembled it.
type DailyRating struct {
	Region       string
	Date         time.Time
	Band         ElevationBand
	Current      int
	Plus1        int
	Plus2        int
	CurrentLabel string
	Plus1Label   string
	Plus2Label   string
	Reason       string // set when ratings are null: "page unavailable", "gap filled", ...
	ScrapedAt    time.Time
}

// RawDataset is the orchestrator's output: one row per date and band in
// ascending date order, possibly with null ratings where pages were missing.
type RawDataset []*DailyRating

// CleanedDataset is a RawDataset with every date in the requested range
// present exactly once per band, deduplicated and sorted.
type CleanedDataset []*DailyRating

// BandForecast holds the three horizon readings one archive page prints for
// a single elevation band. Plus1/Plus2 are forecasts for the page date +1/+2.
type BandForecast struct {
	Band         ElevationBand
	Current      int
	CurrentLabel string
	Plus1        int
	Plus1Label   string
	Plus2        int
	Plus2Label   string
}

// PageForecast is the parser's output for one archived forecast page.
type PageForecast struct {
	Region   string
	Date     time.Time
	Bands    []BandForecast
	Problems string
}

// ProblemNote is the forecaster's free-text snowpack problem description for
// one date. Collected alongside ratings; consumed by the stats engine.
type ProblemNote struct {
	Region string
	Date   time.Time
	Text   string
}

// ScrapeResult bundles everything one scrape request produced.
type ScrapeResult struct {
	Ratings  RawDataset
	Problems []*ProblemNote
}

// BandStats holds per-elevation-band aggregates.
type BandStats struct {
	Rated        int         // rows with a current rating
	Distribution map[int]int // current rating -> count
	Mode         int         // most common current rating, 0 if none
	AnomalyPlus1 float64
	AnomalyPlus2 float64
	// MatrixPlus1[reported][forecast] is the percentage of rows with the
	// given reported current rating whose one-day-out forecast said
	// "forecast". Indexed 1..5; row percentages sum to ~100.
	MatrixPlus1 [6][6]float64
	MatrixPlus2 [6][6]float64
}

// StatsReport holds the computed analytics over a cleaned dataset.
type StatsReport struct {
	Region         string
	TotalRows      int
	RatedRows      int
	MissingPercent float64
	AnomalyPlus1   float64
	AnomalyPlus2   float64
	ByBand         map[ElevationBand]*BandStats
	ProblemCounts  map[string]int // problem type -> mention count
}
