package services

import (
	"fmt"
	"sort"
	"time"

	"avalanche-scraper/models"
	"avalanche-scraper/utils"
)

const reasonGapFilled = "gap filled"

// Cleaner turns a raw scraped dataset into a gap-free, deduplicated table:
// every date in the requested range appears exactly once per elevation band.
// Missing dates are inserted with null ratings — never interpolated — and
// rows that already carry partial nulls pass through unchanged, because a
// null there means the forecast genuinely was not published that far out.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean validates the request range, collapses duplicate (date, band) rows
// to their first occurrence, drops rows outside the range, and gap-fills
// any (date, band) combination the scrape never produced.
func (c *Cleaner) Clean(raw models.RawDataset, req models.ScrapeRequest) (models.CleanedDataset, error) {
	if req.Days() == 0 {
		return nil, fmt.Errorf("clean %s: %w", req.Region, models.ErrInvalidRange)
	}

	byKey := make(map[string]*models.DailyRating, len(raw))
	dropped := 0
	duplicates := 0

	for _, row := range raw {
		if row.Date.Before(req.StartDate) || row.Date.After(req.EndDate) {
			c.logger.Warn("[cleaner] Dropping out-of-range row: %s %s",
				row.Date.Format("2006-01-02"), row.Band)
			dropped++
			continue
		}

		key := rowKey(row.Date, row.Band)
		if _, dup := byKey[key]; dup {
			c.logger.Debug("[cleaner] Duplicate row skipped: %s", key)
			duplicates++
			continue
		}
		byKey[key] = row
	}

	filled := 0
	cleaned := make(models.CleanedDataset, 0, req.Days()*len(models.Bands))
	for date := req.StartDate; !date.After(req.EndDate); date = date.AddDate(0, 0, 1) {
		for _, band := range models.Bands {
			if row, ok := byKey[rowKey(date, band)]; ok {
				cleaned = append(cleaned, row)
				continue
			}
			cleaned = append(cleaned, &models.DailyRating{
				Region: req.Region,
				Date:   date,
				Band:   band,
				Reason: reasonGapFilled,
			})
			filled++
		}
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Date.Before(cleaned[j].Date)
	})

	c.logger.Info("[cleaner] %s: %d raw → %d cleaned rows (dropped %d, deduped %d, gap-filled %d)",
		req.Region, len(raw), len(cleaned), dropped, duplicates, filled)
	return cleaned, nil
}

func rowKey(date time.Time, band models.ElevationBand) string {
	return date.Format("2006-01-02") + "/" + string(band)
}
