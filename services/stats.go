package services

import (
	"fmt"
	"sort"
	"strings"

	"avalanche-scraper/models"
	"avalanche-scraper/utils"
)

// avyProblemTypes is the fixed vocabulary of snowpack problems matched
// against the forecasters' free text (after the Simon Fraser taxonomy).
var avyProblemTypes = []string{
	"storm slab", "wind slab", "wet avalanche", "cornice",
	"persistent slab", "deep persistent", "wet loose",
}

// StatsEngine computes forecast-accuracy statistics over a cleaned dataset.
type StatsEngine struct {
	logger *utils.Logger
}

// NewStatsEngine creates a StatsEngine with the given logger.
func NewStatsEngine(logger *utils.Logger) *StatsEngine {
	return &StatsEngine{logger: logger}
}

// AnomalyRate returns the fraction of rows, in [0, 1], whose earlier-issued
// forecast for the given horizon disagrees with the day-of rating for the
// same date. Rows where either side is null are excluded from numerator and
// denominator; equal ratings count as agreement.
func (e *StatsEngine) AnomalyRate(cleaned models.CleanedDataset, horizon models.Horizon) float64 {
	return anomalyRate(cleaned, horizon)
}

func anomalyRate(rows []*models.DailyRating, horizon models.Horizon) float64 {
	comparable := 0
	anomalies := 0

	for _, row := range rows {
		forecast := horizonRating(row, horizon)
		if row.Current == models.NoRating || forecast == models.NoRating {
			continue
		}
		comparable++
		if forecast != row.Current {
			anomalies++
		}
	}

	if comparable == 0 {
		return 0
	}
	return float64(anomalies) / float64(comparable)
}

func horizonRating(row *models.DailyRating, horizon models.Horizon) int {
	if horizon == models.HorizonPlus2 {
		return row.Plus2
	}
	return row.Plus1
}

// Generate computes the full report: totals, per-band rating distributions
// and modes, anomaly rates for both horizons, per-band anomaly matrices,
// and problem-type mention counts.
func (e *StatsEngine) Generate(region string, cleaned models.CleanedDataset, problems []*models.ProblemNote) *models.StatsReport {
	report := &models.StatsReport{
		Region:        region,
		ByBand:        make(map[models.ElevationBand]*models.BandStats),
		ProblemCounts: countProblemTypes(problems),
	}

	if len(cleaned) == 0 {
		return report
	}

	report.TotalRows = len(cleaned)
	for _, row := range cleaned {
		if row.Current != models.NoRating {
			report.RatedRows++
		}
	}
	report.MissingPercent = round2(float64(report.TotalRows-report.RatedRows) / float64(report.TotalRows) * 100)

	report.AnomalyPlus1 = anomalyRate(cleaned, models.HorizonPlus1)
	report.AnomalyPlus2 = anomalyRate(cleaned, models.HorizonPlus2)

	for _, band := range models.Bands {
		rows := bandRows(cleaned, band)
		stats := &models.BandStats{
			Distribution: make(map[int]int),
		}
		for _, row := range rows {
			if row.Current != models.NoRating {
				stats.Rated++
				stats.Distribution[row.Current]++
			}
		}
		stats.Mode = distributionMode(stats.Distribution)
		stats.AnomalyPlus1 = anomalyRate(rows, models.HorizonPlus1)
		stats.AnomalyPlus2 = anomalyRate(rows, models.HorizonPlus2)
		stats.MatrixPlus1 = anomalyMatrix(rows, models.HorizonPlus1)
		stats.MatrixPlus2 = anomalyMatrix(rows, models.HorizonPlus2)
		report.ByBand[band] = stats
	}

	return report
}

func bandRows(rows []*models.DailyRating, band models.ElevationBand) []*models.DailyRating {
	var out []*models.DailyRating
	for _, row := range rows {
		if row.Band == band {
			out = append(out, row)
		}
	}
	return out
}

// distributionMode returns the most frequent rating; ties resolve to the
// lower rating so the result is deterministic.
func distributionMode(dist map[int]int) int {
	mode := models.NoRating
	best := 0
	for code := models.RatingLow; code <= models.RatingExtreme; code++ {
		if dist[code] > best {
			best = dist[code]
			mode = code
		}
	}
	return mode
}

// anomalyMatrix computes, for each reported day-of rating, the percentage
// of rows whose earlier-issued forecast said each rating. Rows with either
// side null are excluded. matrix[reported][forecast], indexed 1..5.
func anomalyMatrix(rows []*models.DailyRating, horizon models.Horizon) [6][6]float64 {
	var counts [6][6]int
	var totals [6]int

	for _, row := range rows {
		forecast := horizonRating(row, horizon)
		if row.Current == models.NoRating || forecast == models.NoRating {
			continue
		}
		counts[row.Current][forecast]++
		totals[row.Current]++
	}

	var matrix [6][6]float64
	for reported := models.RatingLow; reported <= models.RatingExtreme; reported++ {
		if totals[reported] == 0 {
			continue
		}
		for forecast := models.RatingLow; forecast <= models.RatingExtreme; forecast++ {
			matrix[reported][forecast] = round2(float64(counts[reported][forecast]) / float64(totals[reported]) * 100)
		}
	}
	return matrix
}

// countProblemTypes counts mentions of each known problem type across the
// forecasters' problem text.
func countProblemTypes(problems []*models.ProblemNote) map[string]int {
	counts := make(map[string]int)
	for _, note := range problems {
		text := strings.ReplaceAll(strings.ToLower(note.Text), ".", "")
		for _, problemType := range avyProblemTypes {
			if strings.Contains(text, problemType) {
				counts[problemType]++
			}
		}
	}
	return counts
}

// Print renders the report to the terminal.
func (e *StatsEngine) Print(r *models.StatsReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏔  AVALANCHE FORECAST STATS — %s\033[0m\n", r.Region)
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total rows (date × band) : \033[1m%d\033[0m\n", r.TotalRows)
	fmt.Printf("  Rows with a rating       : \033[1m%d\033[0m\n", r.RatedRows)
	fmt.Printf("  Missing                  : \033[1m%.2f%%\033[0m\n", r.MissingPercent)
	fmt.Println()

	// Forecast accuracy
	fmt.Printf("\033[1;33m  Forecast Anomaly Rates\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  One day out  : \033[1;32m%.1f%%\033[0m of comparable rows disagreed\n", r.AnomalyPlus1*100)
	fmt.Printf("  Two days out : \033[1;32m%.1f%%\033[0m of comparable rows disagreed\n", r.AnomalyPlus2*100)
	fmt.Println()

	// Per-band distributions
	for _, band := range models.Bands {
		stats := r.ByBand[band]
		if stats == nil {
			continue
		}
		fmt.Printf("\033[1;33m  %s\033[0m  (mode: %s)\n", bandTitle(band), modeLabel(stats.Mode))
		fmt.Printf("  %s\n", thin)
		for code := models.RatingLow; code <= models.RatingExtreme; code++ {
			count := stats.Distribution[code]
			bar := strings.Repeat("█", scaleBar(count, stats.Rated))
			fmt.Printf("  %-14s %s (%d)\n", models.RatingLabel(code), bar, count)
		}
		fmt.Printf("  Anomaly: +1 day %.1f%% | +2 days %.1f%%\n\n",
			stats.AnomalyPlus1*100, stats.AnomalyPlus2*100)
	}

	// Problem mentions
	fmt.Printf("\033[1;33m  Most Common Avalanche Problems\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ProblemCounts) == 0 {
		fmt.Printf("  No problem text collected\n")
	} else {
		type problemCount struct {
			name  string
			count int
		}
		var sorted []problemCount
		for name, count := range r.ProblemCounts {
			sorted = append(sorted, problemCount{name, count})
		}
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].count > sorted[j].count
		})
		for _, pc := range sorted {
			fmt.Printf("  %-18s %d mentions\n", pc.name, pc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func bandTitle(band models.ElevationBand) string {
	switch band {
	case models.BandAlpine:
		return "Alpine"
	case models.BandTreeline:
		return "Treeline"
	default:
		return "Below Treeline"
	}
}

func modeLabel(code int) string {
	if code == models.NoRating {
		return "n/a"
	}
	return models.RatingLabel(code)
}

// scaleBar keeps distribution bars readable for multi-season datasets.
func scaleBar(count, total int) int {
	if total == 0 || count == 0 {
		return 0
	}
	width := count * 40 / total
	if width == 0 {
		width = 1
	}
	return width
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
