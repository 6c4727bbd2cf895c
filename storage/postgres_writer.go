package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"avalanche-scraper/models"
)

// PostgresWriter persists cleaned daily ratings to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_ratings (
			id            SERIAL PRIMARY KEY,
			region        VARCHAR(100) NOT NULL,
			date          DATE         NOT NULL,
			band          VARCHAR(20)  NOT NULL,
			current       SMALLINT     NOT NULL DEFAULT 0,
			current_label VARCHAR(20)  NOT NULL DEFAULT '',
			plus1         SMALLINT     NOT NULL DEFAULT 0,
			plus1_label   VARCHAR(20)  NOT NULL DEFAULT '',
			plus2         SMALLINT     NOT NULL DEFAULT 0,
			plus2_label   VARCHAR(20)  NOT NULL DEFAULT '',
			reason        TEXT         NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (region, date, band)
		);

		CREATE INDEX IF NOT EXISTS idx_daily_ratings_region ON daily_ratings(region);
		CREATE INDEX IF NOT EXISTS idx_daily_ratings_date   ON daily_ratings(date);
		CREATE INDEX IF NOT EXISTS idx_daily_ratings_band   ON daily_ratings(band);
	`)
	return err
}

// Write batch-upserts cleaned rows. A re-scrape of the same region and range
// refreshes the stored values instead of duplicating them.
func (pw *PostgresWriter) Write(rows []*models.DailyRating) error {
	if len(rows) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := pw.upsertBatch(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) upsertBatch(batch []*models.DailyRating) error {
	const cols = 10
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		placeholders := make([]string, cols)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", base+i+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.Region, r.Date, string(r.Band),
			r.Current, r.CurrentLabel,
			r.Plus1, r.Plus1Label,
			r.Plus2, r.Plus2Label,
			r.Reason)
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_ratings
			(region, date, band, current, current_label, plus1, plus1_label, plus2, plus2_label, reason)
		VALUES %s
		ON CONFLICT (region, date, band) DO UPDATE SET
			current = EXCLUDED.current, current_label = EXCLUDED.current_label,
			plus1 = EXCLUDED.plus1, plus1_label = EXCLUDED.plus1_label,
			plus2 = EXCLUDED.plus2, plus2_label = EXCLUDED.plus2_label,
			reason = EXCLUDED.reason
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchRegion retrieves all stored rows for a region in date order — used by
// the stats engine to report off the persisted table.
func (pw *PostgresWriter) FetchRegion(region string) ([]*models.DailyRating, error) {
	rows, err := pw.db.Query(`
		SELECT region, date, band, current, current_label, plus1, plus1_label, plus2, plus2_label, reason
		FROM daily_ratings
		WHERE region = $1
		ORDER BY date, band
	`, region)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch region %q: %w", region, err)
	}
	defer rows.Close()

	var ratings []*models.DailyRating
	for rows.Next() {
		r := &models.DailyRating{}
		var band string
		if err := rows.Scan(
			&r.Region, &r.Date, &band,
			&r.Current, &r.CurrentLabel,
			&r.Plus1, &r.Plus1Label,
			&r.Plus2, &r.Plus2Label,
			&r.Reason,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.Band = models.ElevationBand(band)
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
