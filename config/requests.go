package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"avalanche-scraper/models"
)

const dateLayout = "2006-01-02"

// requestInput mirrors one entry of the scrape request file on disk.
type requestInput struct {
	Region    string `json:"region"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// LoadRequests reads the JSON request list at path. The file holds either a
// single request object or an array of them. Each request is validated;
// a bad entry fails the whole load so misconfiguration is caught before any
// browser work starts.
func LoadRequests(path string) ([]models.ScrapeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("requests: read %q: %w", path, err)
	}

	var inputs []requestInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		// Fall back to the single-object form.
		var single requestInput
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("requests: parse %q: %w", path, err)
		}
		inputs = []requestInput{single}
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("requests: %q contains no requests", path)
	}

	requests := make([]models.ScrapeRequest, 0, len(inputs))
	for i, in := range inputs {
		req, err := parseRequest(in)
		if err != nil {
			return nil, fmt.Errorf("requests: entry %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func parseRequest(in requestInput) (models.ScrapeRequest, error) {
	region := strings.TrimSpace(in.Region)
	if region == "" {
		return models.ScrapeRequest{}, fmt.Errorf("region is required")
	}

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return models.ScrapeRequest{}, fmt.Errorf("invalid start_date %q: %w", in.StartDate, err)
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		return models.ScrapeRequest{}, fmt.Errorf("invalid end_date %q: %w", in.EndDate, err)
	}

	return models.ScrapeRequest{
		Region:    region,
		StartDate: start,
		EndDate:   end,
	}, nil
}
