package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/citypulse/internal/signal"
)

// News polls an RSS feed from a local news aggregator.
type News struct {
	feedURL    string
	httpClient *http.Client
}

// NewNews creates an RSS news collector.
func NewNews(feedURL string) *News {
	return &News{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceName identifies this collector in reports and error messages.
func (n *News) SourceName() string { return "news" }

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Collect fetches and parses the RSS feed.
func (n *News) Collect(ctx context.Context) ([]signal.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("news feed: create request: %w", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news feed: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("news feed: status %d: %s", resp.StatusCode, string(body))
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("news feed: decode rss: %w", err)
	}

	out := make([]signal.Raw, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		out = append(out, signal.Raw{
			Source:      n.SourceName(),
			Title:       item.Title,
			Content:     item.Description,
			URL:         item.Link,
			PublishedAt: parsePubDate(item.PubDate),
		})
	}
	return out, nil
}

// parsePubDate handles the date formats RSS feeds emit in practice.
func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
