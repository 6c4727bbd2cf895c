package storage

import "avalanche-scraper/models"

// RatingWriter is the interface any rating storage backend must satisfy.
type RatingWriter interface {
	Write(rows []*models.DailyRating) error
	Close() error
}

// ProblemWriter persists the forecasters' problem text.
type ProblemWriter interface {
	WriteProblems(problems []*models.ProblemNote) error
	Close() error
}
