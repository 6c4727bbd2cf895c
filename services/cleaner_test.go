package services

import (
	"errors"
	"testing"
	"time"

	"avalanche-scraper/models"
	"avalanche-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger(false) }

func jan(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func testRequest(startDay, endDay int) models.ScrapeRequest {
	return models.ScrapeRequest{
		Region:    "sea-to-sky",
		StartDate: jan(startDay),
		EndDate:   jan(endDay),
	}
}

// fullDay builds the three band rows for one date with the given rating.
func fullDay(d, rating int) []*models.DailyRating {
	rows := make([]*models.DailyRating, 0, len(models.Bands))
	for _, band := range models.Bands {
		rows = append(rows, &models.DailyRating{
			Region:  "sea-to-sky",
			Date:    jan(d),
			Band:    band,
			Current: rating,
		})
	}
	return rows
}

func TestCleanGapFillsMissingDate(t *testing.T) {
	req := testRequest(1, 10)

	var raw models.RawDataset
	for d := 1; d <= 10; d++ {
		if d == 5 {
			continue // 2020-01-05 never scraped
		}
		raw = append(raw, fullDay(d, 2)...)
	}

	cleaned, err := NewCleaner(newTestLogger()).Clean(raw, req)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	if len(cleaned) != 10*len(models.Bands) {
		t.Fatalf("rows: got %d, want %d", len(cleaned), 10*len(models.Bands))
	}

	found := 0
	for _, row := range cleaned {
		if !row.Date.Equal(jan(5)) {
			continue
		}
		found++
		if row.Current != models.NoRating || row.Plus1 != models.NoRating || row.Plus2 != models.NoRating {
			t.Errorf("gap-filled row should have null ratings, got %+v", row)
		}
		if row.Reason != reasonGapFilled {
			t.Errorf("reason: got %q, want %q", row.Reason, reasonGapFilled)
		}
	}
	if found != len(models.Bands) {
		t.Errorf("2020-01-05 rows: got %d, want %d", found, len(models.Bands))
	}
}

func TestCleanNoDuplicatesNoGaps(t *testing.T) {
	req := testRequest(1, 7)

	var raw models.RawDataset
	for d := 1; d <= 7; d++ {
		raw = append(raw, fullDay(d, 3)...)
	}

	cleaned, err := NewCleaner(newTestLogger()).Clean(raw, req)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	perBand := make(map[models.ElevationBand]int)
	seen := make(map[string]bool)
	for _, row := range cleaned {
		perBand[row.Band]++
		key := row.Date.Format("2006-01-02") + string(row.Band)
		if seen[key] {
			t.Errorf("duplicate row: %s", key)
		}
		seen[key] = true
	}
	for _, band := range models.Bands {
		if perBand[band] != req.Days() {
			t.Errorf("%s rows: got %d, want %d", band, perBand[band], req.Days())
		}
	}
}

func TestCleanCollapsesDuplicatesToFirst(t *testing.T) {
	req := testRequest(1, 1)

	raw := models.RawDataset{}
	raw = append(raw, fullDay(1, 2)...)
	raw = append(raw, fullDay(1, 4)...) // same page fetched twice

	cleaned, err := NewCleaner(newTestLogger()).Clean(raw, req)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	if len(cleaned) != len(models.Bands) {
		t.Fatalf("rows: got %d, want %d", len(cleaned), len(models.Bands))
	}
	for _, row := range cleaned {
		if row.Current != 2 {
			t.Errorf("first occurrence should win: got %d, want 2", row.Current)
		}
	}
}

func TestCleanPassesPartialNullsThrough(t *testing.T) {
	req := testRequest(1, 1)

	raw := models.RawDataset{
		{Region: "sea-to-sky", Date: jan(1), Band: models.BandAlpine, Current: 2, Plus1: models.NoRating, Plus2: models.NoRating},
		{Region: "sea-to-sky", Date: jan(1), Band: models.BandTreeline, Current: 2, Plus1: 3, Plus2: models.NoRating},
		{Region: "sea-to-sky", Date: jan(1), Band: models.BandBelowTree, Current: 1, Plus1: 1, Plus2: 1},
	}

	cleaned, err := NewCleaner(newTestLogger()).Clean(raw, req)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	for _, row := range cleaned {
		if row.Band == models.BandTreeline && (row.Plus1 != 3 || row.Plus2 != models.NoRating) {
			t.Errorf("partial nulls must pass through unchanged, got %+v", row)
		}
	}
}

func TestCleanSortsAscending(t *testing.T) {
	req := testRequest(1, 3)

	var raw models.RawDataset
	for _, d := range []int{3, 1, 2} {
		raw = append(raw, fullDay(d, 2)...)
	}

	cleaned, err := NewCleaner(newTestLogger()).Clean(raw, req)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	for i := 1; i < len(cleaned); i++ {
		if cleaned[i].Date.Before(cleaned[i-1].Date) {
			t.Fatalf("rows not sorted ascending at index %d", i)
		}
	}
}

func TestCleanInvalidRange(t *testing.T) {
	req := testRequest(10, 1)

	cleaned, err := NewCleaner(newTestLogger()).Clean(models.RawDataset{}, req)
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Errorf("got %v, want ErrInvalidRange", err)
	}
	if len(cleaned) != 0 {
		t.Errorf("invalid range must produce no rows, got %d", len(cleaned))
	}
}

func TestCleanDropsOutOfRangeRows(t *testing.T) {
	req := testRequest(1, 2)

	raw := models.RawDataset{}
	raw = append(raw, fullDay(1, 2)...)
	raw = append(raw, fullDay(2, 2)...)
	raw = append(raw, fullDay(9, 5)...) // stray row outside the range

	cleaned, err := NewCleaner(newTestLogger()).Clean(raw, req)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned) != 2*len(models.Bands) {
		t.Fatalf("rows: got %d, want %d", len(cleaned), 2*len(models.Bands))
	}
	for _, row := range cleaned {
		if row.Date.After(req.EndDate) {
			t.Errorf("out-of-range row survived: %+v", row)
		}
	}
}
