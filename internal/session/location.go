package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Location is the subset of an ipapi-style geolocation answer we keep.
type Location struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country_name"`
	Timezone string `json:"timezone"`
}

// FetchLocation queries a geolocation endpoint, usually the relay's
// /api/location proxy. Failures are returned; callers treat location as
// optional.
func FetchLocation(ctx context.Context, client *http.Client, url string) (*Location, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build location request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch location")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("location lookup answered %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, errors.Wrap(err, "decode location")
	}
	return &loc, nil
}

// Apply copies the location into the tracker's user info.
func (l *Location) Apply(t *Tracker) {
	if l == nil {
		return
	}
	t.SetLocation(l.Country, l.City, l.Region, l.Timezone)
}
