package collector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/linnemanlabs/citypulse/internal/signal"
)

// CityFeed polls an open311-style city service-request endpoint.
type CityFeed struct {
	endpoint   string
	httpClient *http.Client
}

// NewCityFeed creates a city service-request collector.
func NewCityFeed(endpoint string) *CityFeed {
	return &CityFeed{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceName identifies this collector in reports and error messages.
func (c *CityFeed) SourceName() string { return "cityfeed" }

type serviceRequest struct {
	ID          string   `json:"service_request_id"`
	ServiceName string   `json:"service_name"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Status      string   `json:"status"`
	RequestedAt string   `json:"requested_datetime"`
	Lat         *float64 `json:"lat"`
	Long        *float64 `json:"long"`
}

// Collect fetches open service requests from the feed.
func (c *CityFeed) Collect(ctx context.Context) ([]signal.Raw, error) {
	var requests []serviceRequest
	if err := getJSON(ctx, c.httpClient, c.endpoint, nil, &requests); err != nil {
		return nil, fmt.Errorf("city feed: %w", err)
	}

	out := make([]signal.Raw, 0, len(requests))
	for _, r := range requests {
		meta := map[string]string{
			"status": r.Status,
		}
		if r.Address != "" {
			meta["address"] = r.Address
		}
		if r.Lat != nil && r.Long != nil {
			meta["lat"] = strconv.FormatFloat(*r.Lat, 'f', -1, 64)
			meta["long"] = strconv.FormatFloat(*r.Long, 'f', -1, 64)
		}

		requested, _ := time.Parse(time.RFC3339, r.RequestedAt)

		out = append(out, signal.Raw{
			Source:      c.SourceName(),
			Title:       r.ServiceName,
			Content:     r.Description,
			URL:         fmt.Sprintf("%s/%s", c.endpoint, r.ID),
			PublishedAt: requested,
			Metadata:    meta,
		})
	}
	return out, nil
}
