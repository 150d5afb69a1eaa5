// Package collector provides the concrete signal collectors: a social
// search poller, a city service-request feed, and an RSS news poller.
// Each owns its own endpoint config and HTTP client; failures stay
// isolated to the one source.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/citypulse/internal/signal"
)

const socialPageSize = 25

// Social polls the Bluesky public search API for posts matching a query.
type Social struct {
	endpoint   string
	query      string
	httpClient *http.Client
}

// NewSocial creates a social collector searching for the given query.
func NewSocial(endpoint, query string) *Social {
	return &Social{
		endpoint:   endpoint,
		query:      query,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceName identifies this collector in reports and error messages.
func (s *Social) SourceName() string { return "social" }

type socialPost struct {
	URI    string `json:"uri"`
	Author struct {
		Handle string `json:"handle"`
	} `json:"author"`
	Record struct {
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"record"`
	LikeCount   int `json:"likeCount"`
	RepostCount int `json:"repostCount"`
	ReplyCount  int `json:"replyCount"`
}

type socialSearchResponse struct {
	Posts []socialPost `json:"posts"`
}

// Collect fetches the most recent matching posts.
func (s *Social) Collect(ctx context.Context) ([]signal.Raw, error) {
	u := fmt.Sprintf("%s/xrpc/app.bsky.feed.searchPosts?q=%s&sort=latest&limit=%d",
		strings.TrimRight(s.endpoint, "/"), url.QueryEscape(s.query), socialPageSize)

	var resp socialSearchResponse
	if err := getJSON(ctx, s.httpClient, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("social search: %w", err)
	}

	out := make([]signal.Raw, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		out = append(out, signal.Raw{
			Source:      s.SourceName(),
			Title:       firstLine(p.Record.Text),
			Content:     p.Record.Text,
			URL:         postURL(p.URI, p.Author.Handle),
			PublishedAt: p.Record.CreatedAt,
			Engagement:  float64(p.LikeCount + p.RepostCount + p.ReplyCount),
			Metadata: map[string]string{
				"author": p.Author.Handle,
			},
		})
	}
	return out, nil
}

// postURL converts an AT URI (at://did/collection/rkey) into a web link.
func postURL(uri, handle string) string {
	parts := strings.Split(strings.TrimPrefix(uri, "at://"), "/")
	if len(parts) != 3 {
		return uri
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, parts[2])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		// Back up to a rune boundary so multi-byte characters survive.
		cut := 117
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return strings.TrimSpace(s)
}

// getJSON performs a GET with optional headers and decodes the JSON body.
func getJSON(ctx context.Context, client *http.Client, u string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
