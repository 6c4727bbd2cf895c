package parser

import (
	"errors"
	"fmt"
)

// ErrPageUnavailable means the archive served no forecast for the requested
// date: an empty page, an app shell with no content, or an explicit
// "no forecast" notice. The orchestrator records a null-rating row for it.
var ErrPageUnavailable = errors.New("page unavailable")

// MissingMarkerError means the page had content but one of the expected
// rating markers could not be located. This usually signals that the archive
// changed its page layout.
type MissingMarkerError struct {
	Marker string
}

func (e *MissingMarkerError) Error() string {
	return fmt.Sprintf("missing page marker: %s", e.Marker)
}
