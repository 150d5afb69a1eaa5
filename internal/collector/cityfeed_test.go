package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const cityFeedFixture = `[
  {
    "service_request_id": "sr-1001",
    "service_name": "Water Main Break",
    "description": "Water flooding the intersection",
    "address": "5th and Main",
    "status": "open",
    "requested_datetime": "2026-03-01T08:30:00Z",
    "lat": 45.5231,
    "long": -122.6765
  },
  {
    "service_request_id": "sr-1002",
    "service_name": "Graffiti Removal",
    "description": "Tag on the overpass",
    "status": "open",
    "requested_datetime": "not-a-timestamp"
  }
]`

func TestCityFeedCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cityFeedFixture))
	}))
	defer srv.Close()

	c := NewCityFeed(srv.URL)

	signals, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("len = %d, want 2", len(signals))
	}

	s := signals[0]
	if s.Source != "cityfeed" {
		t.Errorf("Source = %q, want cityfeed", s.Source)
	}
	if s.Title != "Water Main Break" {
		t.Errorf("Title = %q", s.Title)
	}
	if s.URL != srv.URL+"/sr-1001" {
		t.Errorf("URL = %q", s.URL)
	}
	if s.Metadata["address"] != "5th and Main" {
		t.Errorf("address = %q", s.Metadata["address"])
	}
	if s.Metadata["lat"] != "45.5231" {
		t.Errorf("lat = %q", s.Metadata["lat"])
	}
	if s.Metadata["long"] != "-122.6765" {
		t.Errorf("long = %q", s.Metadata["long"])
	}
	if s.PublishedAt.IsZero() {
		t.Error("expected PublishedAt from requested_datetime")
	}

	// Missing coordinates and an unparseable timestamp are tolerated.
	s2 := signals[1]
	if _, ok := s2.Metadata["lat"]; ok {
		t.Error("expected no lat without coordinates")
	}
	if _, ok := s2.Metadata["address"]; ok {
		t.Error("expected no address key when address is empty")
	}
	if !s2.PublishedAt.IsZero() {
		t.Errorf("PublishedAt = %v, want zero for bad timestamp", s2.PublishedAt)
	}
}

func TestCityFeedCollect_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCityFeed(srv.URL)

	_, err := c.Collect(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
