package models

import "errors"

// ErrInvalidRange means a scrape request's date range is empty or reversed.
// It is fatal for that single request only; other requests in a batch
// proceed.
var ErrInvalidRange = errors.New("invalid date range: start date is after end date")
